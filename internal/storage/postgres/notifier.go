package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"feed_notifier/internal/domain"
)

// NotifierStore persists Notifier records in Postgres. It satisfies the
// same contract as the in-memory store; a record's mutable fields are
// replaced in a single upsert statement so partial updates are never
// visible to concurrent readers.
type NotifierStore struct {
	db *sqlx.DB
}

func NewNotifierStore(db *sqlx.DB) *NotifierStore {
	return &NotifierStore{db: db}
}

type notifierRow struct {
	ID             int64          `db:"id"`
	RSS            string         `db:"rss"`
	Title          string         `db:"title"`
	Description    string         `db:"description"`
	Link           string         `db:"link"`
	Image          []byte         `db:"image"`
	Language       string         `db:"language"`
	Copyright      string         `db:"copyright"`
	Generator      string         `db:"generator"`
	Docs           string         `db:"docs"`
	ManagingEditor string         `db:"managing_editor"`
	PubDate        string         `db:"pub_date"`
	Items          []byte         `db:"items"`
	IntervalMS     int64          `db:"interval_ms"`
	Status         string         `db:"status"`
	LastUpdated    time.Time      `db:"last_updated"`
}

func toRow(n *domain.Notifier) (*notifierRow, error) {
	image, err := json.Marshal(n.Image)
	if err != nil {
		return nil, fmt.Errorf("marshal image: %w", err)
	}

	items := n.Items
	if items == nil {
		items = []domain.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	return &notifierRow{
		ID:             n.ID,
		RSS:            n.RSS,
		Title:          n.Title,
		Description:    n.Description,
		Link:           n.Link,
		Image:          image,
		Language:       n.Language,
		Copyright:      n.Copyright,
		Generator:      n.Generator,
		Docs:           n.Docs,
		ManagingEditor: n.ManagingEditor,
		PubDate:        n.PubDate,
		Items:          itemsJSON,
		IntervalMS:     n.Interval,
		Status:         string(n.Status),
		LastUpdated:    n.LastUpdated,
	}, nil
}

func (r *notifierRow) toDomain() (*domain.Notifier, error) {
	n := &domain.Notifier{
		ID:             r.ID,
		RSS:            r.RSS,
		Title:          r.Title,
		Description:    r.Description,
		Link:           r.Link,
		Language:       r.Language,
		Copyright:      r.Copyright,
		Generator:      r.Generator,
		Docs:           r.Docs,
		ManagingEditor: r.ManagingEditor,
		PubDate:        r.PubDate,
		Interval:       r.IntervalMS,
		Status:         domain.Status(r.Status),
		LastUpdated:    r.LastUpdated,
	}
	if len(r.Image) > 0 {
		if err := json.Unmarshal(r.Image, &n.Image); err != nil {
			return nil, fmt.Errorf("unmarshal image: %w", err)
		}
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &n.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	return n, nil
}

const notifierColumns = `
	id, rss, title, description, link, image, language, copyright,
	generator, docs, managing_editor, pub_date, items, interval_ms,
	status, last_updated`

func (s *NotifierStore) Get(ctx context.Context, id int64) (*domain.Notifier, error) {
	var row notifierRow
	query := `SELECT` + notifierColumns + ` FROM notifiers WHERE id = $1`

	err := s.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (s *NotifierStore) Upsert(ctx context.Context, n *domain.Notifier) error {
	row, err := toRow(n)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifiers (` + notifierColumns + `)
		VALUES (
			:id, :rss, :title, :description, :link, :image, :language,
			:copyright, :generator, :docs, :managing_editor, :pub_date,
			:items, :interval_ms, :status, :last_updated
		)
		ON CONFLICT (id) DO UPDATE SET
			rss = EXCLUDED.rss,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			link = EXCLUDED.link,
			image = EXCLUDED.image,
			language = EXCLUDED.language,
			copyright = EXCLUDED.copyright,
			generator = EXCLUDED.generator,
			docs = EXCLUDED.docs,
			managing_editor = EXCLUDED.managing_editor,
			pub_date = EXCLUDED.pub_date,
			items = EXCLUDED.items,
			interval_ms = EXCLUDED.interval_ms,
			status = EXCLUDED.status,
			last_updated = EXCLUDED.last_updated`

	_, err = s.db.NamedExecContext(ctx, query, row)
	return err
}

func (s *NotifierStore) Remove(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifiers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *NotifierStore) List(ctx context.Context) ([]domain.Notifier, error) {
	var rows []notifierRow
	query := `SELECT` + notifierColumns + ` FROM notifiers ORDER BY id`

	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	out := make([]domain.Notifier, 0, len(rows))
	for i := range rows {
		n, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}
