package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"tradejournal/internal/db/models/postgres/public/model"
	. "tradejournal/internal/db/models/postgres/public/table"

	"github.com/go-jet/jet/v2/postgres"
	"github.com/go-jet/jet/v2/qrm"
)

type postgresDocumentRepositoryHandler struct {
	Db *sql.DB
}

func NewPostgresDocumentRepository(db *sql.DB) DocumentRepository {
	return postgresDocumentRepositoryHandler{
		Db: db,
	}
}

func documentKeyCondition(userID, collection, key string) postgres.BoolExpression {
	return postgres.AND(
		UserDocument.UserID.EQ(postgres.String(userID)),
		UserDocument.Collection.EQ(postgres.String(collection)),
		UserDocument.DocKey.EQ(postgres.String(key)),
	)
}

func (h postgresDocumentRepositoryHandler) Get(ctx context.Context, userID, collection, key string) (*Document, error) {
	query := UserDocument.
		SELECT(UserDocument.AllColumns).
		WHERE(documentKeyCondition(userID, collection, key))

	result := model.UserDocument{}
	err := query.QueryContext(ctx, h.Db, &result)
	if err != nil && errors.Is(err, qrm.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to query document %s/%s: %w", collection, key, err)
	}

	return &Document{
		Key:       result.DocKey,
		Data:      []byte(result.Data),
		UpdatedAt: result.UpdatedAt,
	}, nil
}

func (h postgresDocumentRepositoryHandler) Put(ctx context.Context, userID, collection, key string, data []byte) error {
	query := UserDocument.
		INSERT(UserDocument.AllColumns).
		MODEL(model.UserDocument{
			UserID:     userID,
			Collection: collection,
			DocKey:     key,
			Data:       string(data),
			UpdatedAt:  time.Now().UTC(),
		}).
		ON_CONFLICT(
			UserDocument.UserID, UserDocument.Collection, UserDocument.DocKey,
		).DO_UPDATE(
		postgres.SET(
			UserDocument.Data.SET(UserDocument.EXCLUDED.Data),
			UserDocument.UpdatedAt.SET(UserDocument.EXCLUDED.UpdatedAt),
		),
	)

	_, err := query.ExecContext(ctx, h.Db)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s/%s: %w", collection, key, err)
	}

	return nil
}

func (h postgresDocumentRepositoryHandler) Delete(ctx context.Context, userID, collection, key string) error {
	query := UserDocument.
		DELETE().
		WHERE(documentKeyCondition(userID, collection, key))

	_, err := query.ExecContext(ctx, h.Db)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, key, err)
	}

	return nil
}

func (h postgresDocumentRepositoryHandler) List(ctx context.Context, userID, collection string, opts ListOptions) ([]Document, error) {
	conditions := []postgres.BoolExpression{
		UserDocument.UserID.EQ(postgres.String(userID)),
		UserDocument.Collection.EQ(postgres.String(collection)),
	}
	if opts.StartKey != "" {
		conditions = append(conditions, UserDocument.DocKey.GT_EQ(postgres.String(opts.StartKey)))
	}
	if opts.EndKey != "" {
		conditions = append(conditions, UserDocument.DocKey.LT_EQ(postgres.String(opts.EndKey)))
	}

	orderBy := UserDocument.DocKey.ASC()
	if opts.Descending {
		orderBy = UserDocument.DocKey.DESC()
	}

	query := UserDocument.
		SELECT(UserDocument.AllColumns).
		WHERE(postgres.AND(conditions...)).
		ORDER_BY(orderBy)
	if opts.Limit > 0 {
		query = query.LIMIT(int64(opts.Limit))
	}

	results := []model.UserDocument{}
	err := query.QueryContext(ctx, h.Db, &results)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", collection, err)
	}

	out := make([]Document, 0, len(results))
	for _, r := range results {
		out = append(out, Document{
			Key:       r.DocKey,
			Data:      []byte(r.Data),
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out, nil
}

func (h postgresDocumentRepositoryHandler) ListUserIDs(ctx context.Context, collection string) ([]string, error) {
	query := UserDocument.
		SELECT(UserDocument.UserID).
		WHERE(UserDocument.Collection.EQ(postgres.String(collection))).
		GROUP_BY(UserDocument.UserID).
		ORDER_BY(UserDocument.UserID.ASC())

	results := []model.UserDocument{}
	err := query.QueryContext(ctx, h.Db, &results)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with %s: %w", collection, err)
	}

	out := []string{}
	for _, r := range results {
		out = append(out, r.UserID)
	}
	return out, nil
}
