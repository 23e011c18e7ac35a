package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/autoreply/pkg/domain/interfaces"
	"github.com/secmon-lab/autoreply/pkg/domain/model"
	"github.com/secmon-lab/autoreply/pkg/domain/types"
)

const recordColumns = `name, day_mention, night_mention, day_start, day_end, night_start, night_end,
    watch_channels, reply_channels, message, created_at, updated_at`

type actionStore struct {
	db *sql.DB
}

var _ interfaces.ActionStore = &actionStore{}

func newActionStore(db *sql.DB) *actionStore {
	return &actionStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// recordRow holds the column values shared by both tables
type recordRow struct {
	rec                  model.ActionRecord
	watch, reply         string
	createdAt, updatedAt int64
}

func (r *recordRow) dest() []any {
	return []any{
		&r.rec.Name, &r.rec.DayMention, &r.rec.NightMention,
		&r.rec.DayWindow.Start, &r.rec.DayWindow.End,
		&r.rec.NightWindow.Start, &r.rec.NightWindow.End,
		&r.watch, &r.reply, &r.rec.Message, &r.createdAt, &r.updatedAt,
	}
}

func (r *recordRow) decode() (*model.ActionRecord, error) {
	if err := json.Unmarshal([]byte(r.watch), &r.rec.WatchChannels); err != nil {
		return nil, goerr.Wrap(err, "failed to decode watch channels", goerr.V(model.ActionNameKey, r.rec.Name))
	}
	if err := json.Unmarshal([]byte(r.reply), &r.rec.ReplyChannels); err != nil {
		return nil, goerr.Wrap(err, "failed to decode reply channels", goerr.V(model.ActionNameKey, r.rec.Name))
	}
	if r.createdAt != 0 {
		r.rec.CreatedAt = time.Unix(0, r.createdAt).UTC()
	}
	r.rec.UpdatedAt = time.Unix(0, r.updatedAt).UTC()
	return &r.rec, nil
}

func encodeChannels(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode channels")
	}
	return string(raw), nil
}

func recordArgs(rec *model.ActionRecord) ([]any, error) {
	watch, err := encodeChannels(rec.WatchChannels)
	if err != nil {
		return nil, err
	}
	reply, err := encodeChannels(rec.ReplyChannels)
	if err != nil {
		return nil, err
	}

	var createdAt int64
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt.UnixNano()
	}

	return []any{
		rec.Name, rec.DayMention, rec.NightMention,
		rec.DayWindow.Start, rec.DayWindow.End,
		rec.NightWindow.Start, rec.NightWindow.End,
		watch, reply, rec.Message, createdAt, rec.UpdatedAt.UnixNano(),
	}, nil
}

func scanAction(row rowScanner) (*model.ActionRecord, error) {
	var r recordRow
	if err := row.Scan(r.dest()...); err != nil {
		return nil, err
	}
	return r.decode()
}

func scanProvisional(row rowScanner) (*model.ProvisionalRecord, error) {
	var (
		r    recordRow
		p    model.ProvisionalRecord
		step string
	)
	dest := append([]any{&p.Key.Seq, &p.Key.Initiator, &step, &p.EditOf}, r.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec, err := r.decode()
	if err != nil {
		return nil, err
	}
	p.Record = *rec
	p.Step = types.WizardStep(step)
	p.UpdatedAt = rec.UpdatedAt
	p.Record.UpdatedAt = time.Time{}
	return &p, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getAction(ctx context.Context, q querier, name string) (*model.ActionRecord, error) {
	rec, err := scanAction(q.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM actions WHERE name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "action not found", goerr.V(model.ActionNameKey, name))
		}
		return nil, goerr.Wrap(err, "failed to get action", goerr.V(model.ActionNameKey, name))
	}
	return rec, nil
}

func getProvisional(ctx context.Context, q querier, key model.ProvisionalKey) (*model.ProvisionalRecord, error) {
	p, err := scanProvisional(q.QueryRowContext(ctx,
		`SELECT seq, initiator, step, edit_of, `+recordColumns+` FROM provisional_actions WHERE seq = ? AND initiator = ?`,
		key.Seq, key.Initiator))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "session not found", goerr.V(model.ProvisionalKeyKey, key.String()))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V(model.ProvisionalKeyKey, key.String()))
	}
	return p, nil
}

func saveProvisional(ctx context.Context, q querier, p *model.ProvisionalRecord) error {
	rec := p.Record.Clone()
	rec.UpdatedAt = p.UpdatedAt
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `UPDATE provisional_actions SET step = ?, edit_of = ?,
    name = ?, day_mention = ?, night_mention = ?, day_start = ?, day_end = ?, night_start = ?, night_end = ?,
    watch_channels = ?, reply_channels = ?, message = ?, created_at = ?, updated_at = ?
    WHERE seq = ? AND initiator = ?`,
		append(append([]any{p.Step.String(), p.EditOf}, args...), p.Key.Seq, p.Key.Initiator)...)
	if err != nil {
		return goerr.Wrap(err, "failed to save session", goerr.V(model.ProvisionalKeyKey, p.Key.String()))
	}
	return nil
}

// withTx runs fn in a transaction, committing only when fn succeeds
func (s *actionStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (s *actionStore) begin(ctx context.Context, initiator, editOf string) (*model.ProvisionalRecord, error) {
	var created *model.ProvisionalRecord

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		p := model.NewProvisionalRecord(model.ProvisionalKey{Initiator: initiator}, now)

		if editOf != "" {
			rec, err := getAction(ctx, tx, editOf)
			if err != nil {
				return err
			}
			p.Record = *rec
			p.Record.UpdatedAt = time.Time{}
			p.EditOf = editOf
		}

		rec := p.Record.Clone()
		rec.UpdatedAt = now
		args, err := recordArgs(rec)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO provisional_actions (initiator, step, edit_of, `+recordColumns+`)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			append([]any{initiator, p.Step.String(), p.EditOf}, args...)...)
		if err != nil {
			return goerr.Wrap(err, "failed to insert session", goerr.V("initiator", initiator))
		}

		seq, err := res.LastInsertId()
		if err != nil {
			return goerr.Wrap(err, "failed to get session sequence")
		}
		p.Key.Seq = seq
		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *actionStore) BeginProvisional(ctx context.Context, initiator string) (*model.ProvisionalRecord, error) {
	return s.begin(ctx, initiator, "")
}

func (s *actionStore) BeginEdit(ctx context.Context, initiator, name string) (*model.ProvisionalRecord, error) {
	return s.begin(ctx, initiator, name)
}

func (s *actionStore) GetProvisional(ctx context.Context, key model.ProvisionalKey) (*model.ProvisionalRecord, error) {
	return getProvisional(ctx, s.db, key)
}

func (s *actionStore) Get(ctx context.Context, name string) (*model.ActionRecord, error) {
	return getAction(ctx, s.db, name)
}

func (s *actionStore) UpdateField(ctx context.Context, key model.ProvisionalKey, update model.FieldUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProvisional(ctx, tx, key)
		if err != nil {
			return err
		}

		if err := p.Record.Apply(update); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		return saveProvisional(ctx, tx, p)
	})
}

func (s *actionStore) CommitStep(ctx context.Context, key model.ProvisionalKey, c model.StepCommit) (*model.ProvisionalRecord, error) {
	var committed *model.ProvisionalRecord

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProvisional(ctx, tx, key)
		if err != nil {
			return err
		}

		if err := p.Commit(c, time.Now().UTC()); err != nil {
			return err
		}
		if err := saveProvisional(ctx, tx, p); err != nil {
			return err
		}
		committed = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return committed, nil
}

func (s *actionStore) Finalize(ctx context.Context, key model.ProvisionalKey, name string, policy types.ConflictPolicy) (*model.ActionRecord, error) {
	var finalized *model.ActionRecord

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := getProvisional(ctx, tx, key)
		if err != nil {
			return err
		}

		rec, err := p.Finalized(name, time.Now().UTC())
		if err != nil {
			return err
		}

		if p.Replaces(name) && policy == types.ConflictPolicyReject {
			_, err := getAction(ctx, tx, name)
			switch {
			case err == nil:
				return goerr.Wrap(interfaces.ErrConflict, "action name is taken", goerr.V(model.ActionNameKey, name))
			case !errors.Is(err, interfaces.ErrNotFound):
				return err
			}
		}

		if p.Renames(name) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM actions WHERE name = ?`, p.EditOf); err != nil {
				return goerr.Wrap(err, "failed to delete renamed action", goerr.V(model.ActionNameKey, p.EditOf))
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM provisional_actions WHERE seq = ? AND initiator = ?`,
			key.Seq, key.Initiator); err != nil {
			return goerr.Wrap(err, "failed to delete session", goerr.V(model.ProvisionalKeyKey, key.String()))
		}

		args, err := recordArgs(rec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO actions (`+recordColumns+`)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
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

func (s *actionStore) Remove(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE name = ?`, name)
	if err != nil {
		return goerr.Wrap(err, "failed to delete action", goerr.V(model.ActionNameKey, name))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get deleted row count", goerr.V(model.ActionNameKey, name))
	}
	if n == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "action not found", goerr.V(model.ActionNameKey, name))
	}
	return nil
}

func (s *actionStore) List(ctx context.Context) ([]*model.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM actions ORDER BY name`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list actions")
	}
	defer rows.Close()

	var records []*model.ActionRecord
	for rows.Next() {
		rec, err := scanAction(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan action")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate actions")
	}

	return records, nil
}

func (s *actionStore) PruneProvisional(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM provisional_actions WHERE updated_at < ?`, before.UnixNano())
	if err != nil {
		return 0, goerr.Wrap(err, "failed to prune sessions")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get pruned row count")
	}
	return int(n), nil
}
