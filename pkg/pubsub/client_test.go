package pubsub

import (
	"testing"

	"github.com/wacka-accessories/wacka-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"wacka", "orders", "projects/wacka/topics/orders"},
		{"wacka", " projects/other/topics/x ", "projects/other/topics/x"},
		{"", "orders", ""},
		{"wacka", "", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestTopicNamesDeduplicates(t *testing.T) {
	names := TopicNames(config.PubSubConfig{OrdersTopic: "events", PaymentsTopic: "events", InventoryTopic: " stock "})
	if len(names) != 2 || names[0] != "events" || names[1] != "stock" {
		t.Fatalf("unexpected topics %v", names)
	}
}
