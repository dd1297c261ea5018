package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifyWithoutJetStream(t *testing.T) {
	p := NewPublisher(nil)
	err := p.Notify(context.Background(), "messages", "id")
	assert.Error(t, err)
}

func TestSubjectIsWithinStream(t *testing.T) {
	assert.Equal(t, "DOCUMENTS.changes", SubjectChanges)
}
