package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	studyshelf "github.com/tmuthoni/studyshelf"
	"github.com/tmuthoni/studyshelf/config"
	"google.golang.org/api/option"
)

var _ studyshelf.RegistrationStore = FirestoreStore{}

type FirestoreStore struct {
	firestore *firestore.Client
	cfg       config.Firestore
}

type firestoreRegistration struct {
	MaterialID string `firestore:"materialID"`
}

func newFirestoreStore(ctx context.Context, cfg config.Firestore) (FirestoreStore, error) {
	// Create a new Firestore client using application default credentials.
	if cfg.CredentialsFile == "" {
		client, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return FirestoreStore{}, err
		}

		return FirestoreStore{client, cfg}, nil
	}

	// Create a new Firestore client using supplied credentials file.
	client, err := firestore.NewClient(ctx, cfg.ProjectID, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return FirestoreStore{}, err
	}

	return FirestoreStore{client, cfg}, nil
}

// SaveIDs mirrors the id set into the collection: one document per id, keyed
// by the id itself, with documents for dropped ids removed.
func (f FirestoreStore) SaveIDs(ctx context.Context, ids []string) error {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	documents, err := f.firestore.Collection(f.cfg.RegistrationCollectionID).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("failed to get registration documents: %w", err)
	}

	for _, document := range documents {
		if _, ok := keep[document.Ref.ID]; ok {
			delete(keep, document.Ref.ID)
			continue
		}
		if _, err := document.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete stale registration: %w", err)
		}
	}

	for id := range keep {
		_, err := f.firestore.Collection(f.cfg.RegistrationCollectionID).Doc(id).Set(ctx, firestoreRegistration{MaterialID: id})
		if err != nil {
			return fmt.Errorf("failed to write registration to collection: %w", err)
		}
	}

	return nil
}

func (f FirestoreStore) LoadIDs(ctx context.Context) ([]string, error) {
	documents, err := f.firestore.Collection(f.cfg.RegistrationCollectionID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get all documents in registrations collection: %w", err)
	}

	var ids []string
	for _, document := range documents {
		var reg firestoreRegistration
		if err := document.DataTo(&reg); err != nil {
			return nil, fmt.Errorf("failed to deserialize document: %w", err)
		}
		ids = append(ids, reg.MaterialID)
	}

	return ids, nil
}
