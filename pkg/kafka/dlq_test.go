package kafka

import (
	"testing"
)

func TestDLQTopicPrefix(t *testing.T) {
	if DLQTopicPrefix != "menontrucks.dlq" {
		t.Errorf("DLQTopicPrefix = %q, want %q", DLQTopicPrefix, "menontrucks.dlq")
	}
}

func TestDLQTopic(t *testing.T) {
	tests := []struct {
		name        string
		sourceTopic string
		want        string
	}{
		{
			name:        "prefixed domain topic",
			sourceTopic: "menontrucks.listing.created",
			want:        "menontrucks.dlq.listing.created",
		},
		{
			name:        "prefixed seller topic",
			sourceTopic: "menontrucks.seller.updated",
			want:        "menontrucks.dlq.seller.updated",
		},
		{
			name:        "foreign topic gets prefix appended",
			sourceTopic: "external-events",
			want:        "menontrucks.dlq.external-events",
		},
		{
			name:        "empty topic",
			sourceTopic: "",
			want:        "menontrucks.dlq.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DLQTopic(tt.sourceTopic); got != tt.want {
				t.Errorf("DLQTopic(%q) = %q, want %q", tt.sourceTopic, got, tt.want)
			}
		})
	}
}
