package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	actionsCollection     = "actions"
	provisionalCollection = "provisional_actions"
	countersCollection    = "counters"
	provisionalCounterDoc = "provisional_seq"

	pruneBatchSize = 500
)

type actionStore struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.ActionStore = &actionStore{}

func newActionStore(client *firestore.Client) *actionStore {
	return &actionStore{
		client: client,
	}
}

// provisionalDoc is the Firestore persistence model of a wizard session
type provisionalDoc struct {
	Initiator string             `firestore:"initiator"`
	Seq       int64              `firestore:"seq"`
	Record    model.ActionRecord `firestore:"record"`
	Step      string             `firestore:"step"`
	EditOf    string             `firestore:"edit_of"`
	UpdatedAt time.Time          `firestore:"updated_at"`
}

func toProvisionalDoc(p *model.ProvisionalRecord) *provisionalDoc {
	return &provisionalDoc{
		Initiator: p.Key.Initiator,
		Seq:       p.Key.Seq,
		Record:    p.Record,
		Step:      p.Step.String(),
		EditOf:    p.EditOf,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromProvisionalDoc(doc *provisionalDoc) *model.ProvisionalRecord {
	return &model.ProvisionalRecord{
		Key:       model.ProvisionalKey{Initiator: doc.Initiator, Seq: doc.Seq},
		Record:    doc.Record,
		Step:      types.WizardStep(doc.Step),
		EditOf:    doc.EditOf,
		UpdatedAt: doc.UpdatedAt,
	}
}

func (r *actionStore) collection(name string) *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + name)
	}
	return r.client.Collection(name)
}

// actionRef addresses an action by an encoding of its name, since names may contain
// characters Firestore does not allow in document IDs
func (r *actionStore) actionRef(name string) *firestore.DocumentRef {
	return r.collection(actionsCollection).Doc(base64.RawURLEncoding.EncodeToString([]byte(name)))
}

func (r *actionStore) provisionalRef(key model.ProvisionalKey) *firestore.DocumentRef {
	return r.collection(provisionalCollection).Doc(key.String())
}

func (r *actionStore) counterRef() *firestore.DocumentRef {
	return r.collection(countersCollection).Doc(provisionalCounterDoc)
}

// nextSeq reads and bumps the session counter. It performs a read, so it must run before
// any write of the transaction.
func (r *actionStore) nextSeq(tx *firestore.Transaction) (int64, func() error, error) {
	doc, err := tx.Get(r.counterRef())
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 1, func() error {
				return tx.Set(r.counterRef(), map[string]interface{}{"value": int64(1)})
			}, nil
		}
		return 0, nil, goerr.Wrap(err, "failed to get counter")
	}

	currentValue, err := doc.DataAt("value")
	if err != nil {
		return 0, nil, goerr.Wrap(err, "failed to get counter value")
	}
	val, ok := currentValue.(int64)
	if !ok {
		return 0, nil, goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
	}

	next := val + 1
	return next, func() error {
		return tx.Update(r.counterRef(), []firestore.Update{{Path: "value", Value: next}})
	}, nil
}

func (r *actionStore) getAction(tx *firestore.Transaction, name string) (*model.ActionRecord, error) {
	doc, err := tx.Get(r.actionRef(name))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "action not found", goerr.V(model.ActionNameKey, name))
		}
		return nil, goerr.Wrap(err, "failed to get action", goerr.V(model.ActionNameKey, name))
	}

	var rec model.ActionRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal action", goerr.V(model.ActionNameKey, name))
	}
	return &rec, nil
}

func (r *actionStore) getProvisional(tx *firestore.Transaction, key model.ProvisionalKey) (*model.ProvisionalRecord, error) {
	doc, err := tx.Get(r.provisionalRef(key))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "session not found", goerr.V(model.ProvisionalKeyKey, key.String()))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V(model.ProvisionalKeyKey, key.String()))
	}

	var pd provisionalDoc
	if err := doc.DataTo(&pd); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal session", goerr.V(model.ProvisionalKeyKey, key.String()))
	}
	return fromProvisionalDoc(&pd), nil
}

func (r *actionStore) begin(ctx context.Context, initiator, editOf string) (*model.ProvisionalRecord, error) {
	var created *model.ProvisionalRecord

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var base *model.ActionRecord
		if editOf != "" {
			rec, err := r.getAction(tx, editOf)
			if err != nil {
				return err
			}
			base = rec
		}

		seq, bump, err := r.nextSeq(tx)
		if err != nil {
			return err
		}

		p := model.NewProvisionalRecord(model.ProvisionalKey{Initiator: initiator, Seq: seq}, time.Now().UTC())
		if base != nil {
			p.Record = *base
			p.EditOf = editOf
		}

		if err := bump(); err != nil {
			return goerr.Wrap(err, "failed to update counter")
		}
		if err := tx.Create(r.provisionalRef(p.Key), toProvisionalDoc(p)); err != nil {
			return goerr.Wrap(err, "failed to create session", goerr.V(model.ProvisionalKeyKey, p.Key.String()))
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin session", goerr.V("initiator", initiator))
	}

	return created, nil
}

func (r *actionStore) BeginProvisional(ctx context.Context, initiator string) (*model.ProvisionalRecord, error) {
	return r.begin(ctx, initiator, "")
}

func (r *actionStore) BeginEdit(ctx context.Context, initiator, name string) (*model.ProvisionalRecord, error) {
	return r.begin(ctx, initiator, name)
}

func (r *actionStore) GetProvisional(ctx context.Context, key model.ProvisionalKey) (*model.ProvisionalRecord, error) {
	doc, err := r.provisionalRef(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "session not found", goerr.V(model.ProvisionalKeyKey, key.String()))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V(model.ProvisionalKeyKey, key.String()))
	}

	var pd provisionalDoc
	if err := doc.DataTo(&pd); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal session", goerr.V(model.ProvisionalKeyKey, key.String()))
	}
	return fromProvisionalDoc(&pd), nil
}

func (r *actionStore) Get(ctx context.Context, name string) (*model.ActionRecord, error) {
	doc, err := r.actionRef(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "action not found", goerr.V(model.ActionNameKey, name))
		}
		return nil, goerr.Wrap(err, "failed to get action", goerr.V(model.ActionNameKey, name))
	}

	var rec model.ActionRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal action", goerr.V(model.ActionNameKey, name))
	}
	return &rec, nil
}

func (r *actionStore) UpdateField(ctx context.Context, key model.ProvisionalKey, update model.FieldUpdate) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		p, err := r.getProvisional(tx, key)
		if err != nil {
			return err
		}

		if err := p.Record.Apply(update); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()

		if err := tx.Set(r.provisionalRef(key), toProvisionalDoc(p)); err != nil {
			return goerr.Wrap(err, "failed to save session", goerr.V(model.ProvisionalKeyKey, key.String()))
		}
		return nil
	})
}

func (r *actionStore) CommitStep(ctx context.Context, key model.ProvisionalKey, c model.StepCommit) (*model.ProvisionalRecord, error) {
	var committed *model.ProvisionalRecord

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		p, err := r.getProvisional(tx, key)
		if err != nil {
			return err
		}

		if err := p.Commit(c, time.Now().UTC()); err != nil {
			return err
		}

		if err := tx.Set(r.provisionalRef(key), toProvisionalDoc(p)); err != nil {
			return goerr.Wrap(err, "failed to save session", goerr.V(model.ProvisionalKeyKey, key.String()))
		}
		committed = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return committed, nil
}

func (r *actionStore) Finalize(ctx context.Context, key model.ProvisionalKey, name string, policy types.ConflictPolicy) (*model.ActionRecord, error) {
	var finalized *model.ActionRecord

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		p, err := r.getProvisional(tx, key)
		if err != nil {
			return err
		}

		rec, err := p.Finalized(name, time.Now().UTC())
		if err != nil {
			return err
		}

		if p.Replaces(name) && policy == types.ConflictPolicyReject {
			_, err := r.getAction(tx, name)
			switch {
			case err == nil:
				return goerr.Wrap(interfaces.ErrConflict, "action name is taken", goerr.V(model.ActionNameKey, name))
			case !errors.Is(err, interfaces.ErrNotFound):
				return err
			}
		}

		if p.Renames(name) {
			if err := tx.Delete(r.actionRef(p.EditOf)); err != nil {
				return goerr.Wrap(err, "failed to delete renamed action", goerr.V(model.ActionNameKey, p.EditOf))
			}
		}
		if err := tx.Delete(r.provisionalRef(key)); err != nil {
			return goerr.Wrap(err, "failed to delete session", goerr.V(model.ProvisionalKeyKey, key.String()))
		}
		if err := tx.Set(r.actionRef(name), rec); err != nil {
			return goerr.Wrap(err, "failed to save action", goerr.V(model.ActionNameKey, name))
		}

		finalized = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return finalized, nil
}

func (r *actionStore) Remove(ctx context.Context, name string) error {
	if _, err := r.actionRef(name).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "action not found", goerr.V(model.ActionNameKey, name))
		}
		return goerr.Wrap(err, "failed to delete action", goerr.V(model.ActionNameKey, name))
	}
	return nil
}

func (r *actionStore) List(ctx context.Context) ([]*model.ActionRecord, error) {
	iter := r.collection(actionsCollection).OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var records []*model.ActionRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate actions")
		}

		var rec model.ActionRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal action", goerr.V("docID", doc.Ref.ID))
		}
		records = append(records, &rec)
	}

	return records, nil
}

func (r *actionStore) PruneProvisional(ctx context.Context, before time.Time) (int, error) {
	totalDeleted := 0

	for {
		iter := r.collection(provisionalCollection).
			Where("updated_at", "<", before).
			Limit(pruneBatchSize).
			Documents(ctx)
		bulkWriter := r.client.BulkWriter(ctx)
		count := 0

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to iterate sessions for deletion")
			}

			if _, err := bulkWriter.Delete(doc.Ref); err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to delete session", goerr.V("docID", doc.Ref.ID))
			}
			count++
		}
		iter.Stop()
		bulkWriter.End()

		totalDeleted += count
		if count < pruneBatchSize {
			break
		}
	}

	return totalDeleted, nil
}
