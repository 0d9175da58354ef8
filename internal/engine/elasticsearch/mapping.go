package elasticsearch

// AliasName is the stable alias all reads and writes go through. Concrete
// indices behind it are versioned so a full reindex can build into a fresh
// index and swap the alias without downtime.
const AliasName = "listings"

// DefaultIndexName is the concrete index created at bootstrap.
const DefaultIndexName = "listings_v1"

// buildIndexMapping returns the full JSON mapping for a listings index,
// including the synonym analyzer and the edge-ngram autocomplete analyzer.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 3,
    "number_of_replicas": 1,
    "analysis": {
      "analyzer": {
        "listing_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding", "listing_synonym"]
        },
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 15,
          "token_chars": ["letter", "digit"]
        }
      },
      "filter": {
        "listing_synonym": {
          "type": "synonym",
          "synonyms": [
            "truck,lorry",
            "trailer,semi-trailer",
            "excavator,digger",
            "forklift,fork lift,lift truck"
          ]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":             { "type": "keyword" },
      "slug":           { "type": "keyword" },
      "title":          { "type": "text", "analyzer": "listing_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "standard" } } },
      "description":    { "type": "text", "analyzer": "listing_analyzer" },
      "price":          { "type": "float" },
      "currency":       { "type": "keyword" },
      "condition":      { "type": "keyword" },
      "status":         { "type": "keyword" },
      "is_featured":    { "type": "boolean" },
      "views":          { "type": "integer" },
      "brand":          { "type": "text", "fields": { "keyword": { "type": "keyword" }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "standard" } } },
      "model":          { "type": "text", "fields": { "keyword": { "type": "keyword" }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "standard" } } },
      "year":           { "type": "integer" },
      "mileage":        { "type": "integer" },
      "fuel_type":      { "type": "keyword" },
      "transmission":   { "type": "keyword" },
      "power":          { "type": "keyword" },
      "emission_class": { "type": "keyword" },
      "axles":          { "type": "integer" },
      "weight":         { "type": "float" },
      "color":          { "type": "keyword" },
      "city":           { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "country":        { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "location":       { "type": "geo_point" },
      "category_id":    { "type": "keyword" },
      "category_name":  { "type": "keyword" },
      "category_slug":  { "type": "keyword" },
      "seller_id":      { "type": "keyword" },
      "seller_name":    { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "company_name":   { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "thumbnail_url":  { "type": "keyword", "index": false },
      "specifications": { "type": "nested", "properties": { "key": { "type": "keyword" }, "value": { "type": "keyword" } } },
      "created_at":     { "type": "date" },
      "updated_at":     { "type": "date" }
    }
  }
}`
}
