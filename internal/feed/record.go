package feed

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/store"
)

// Field names of a message record.
const (
	FieldText          = "text"
	FieldCreatedAt     = "createdAt"
	FieldUID           = "uid"
	FieldDisplayName   = "displayName"
	FieldPhotoURL      = "photoURL"
	FieldEmail         = "email"
	FieldCorrelationID = "correlationId"
)

// EncodeMessage builds the record appended for m. The creation time is
// always left to the store.
func EncodeMessage(m model.Message) store.Record {
	rec := store.Record{
		FieldText:          m.Body,
		FieldCreatedAt:     store.ServerTimestamp,
		FieldUID:           m.AuthorID.String(),
		FieldDisplayName:   m.AuthorName,
		FieldPhotoURL:      nil,
		FieldEmail:         m.AuthorEmail,
		FieldCorrelationID: m.CorrelationID,
	}
	if m.AuthorAvatar != "" {
		rec[FieldPhotoURL] = m.AuthorAvatar
	}
	return rec
}

// DecodeMessage maps a stored document to a Message.
func DecodeMessage(doc store.Document) (model.Message, error) {
	authorID, err := uuid.Parse(store.String(doc.Data[FieldUID]))
	if err != nil {
		return model.Message{}, fmt.Errorf("message %s: invalid author id: %w", doc.ID, err)
	}

	return model.Message{
		ID:            doc.ID,
		Body:          store.String(doc.Data[FieldText]),
		AuthorID:      authorID,
		AuthorName:    store.String(doc.Data[FieldDisplayName]),
		AuthorAvatar:  store.String(doc.Data[FieldPhotoURL]),
		AuthorEmail:   store.String(doc.Data[FieldEmail]),
		CreatedAt:     store.Time(doc.Data[FieldCreatedAt]),
		CorrelationID: store.String(doc.Data[FieldCorrelationID]),
	}, nil
}
