package repos

import (
    "context"

    "github.com/google/uuid"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/slotter-org/aristo-backend/internal/logger"
    "github.com/slotter-org/aristo-backend/internal/types"
)

type NoteRepo interface {
    ListByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID) ([]types.Note, error)
    // Upsert inserts or updates by id. A row owned by another author is left untouched.
    Upsert(ctx context.Context, tx *gorm.DB, note types.Note) error
    Delete(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, noteID string) error
    Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type noteRepo struct {
    db  *gorm.DB
    log *logger.Logger
}

func NewNoteRepo(db *gorm.DB, baseLog *logger.Logger) NoteRepo {
    repoLog := baseLog.With("repo", "NoteRepo")
    return &noteRepo{db: db, log: repoLog}
}

func (nr *noteRepo) ListByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID) ([]types.Note, error) {
    nr.log.Info("Starting ListByAuthor for Notes now...", "authorID", authorID)

    transaction := tx
    if transaction == nil {
        transaction = nr.db
    }

    results := []types.Note{}
    if authorID == uuid.Nil {
        nr.log.Debug("authorID is nil, returning empty slice")
        return results, nil
    }
    if err := transaction.WithContext(ctx).
        Where("author_id = ?", authorID).
        Order("last_modified DESC").
        Find(&results).Error; err != nil {
        nr.log.Error("Failed to list notes", "error", err)
        return nil, err
    }
    nr.log.Info("Successfully listed notes", "count", len(results))
    return results, nil
}

func (nr *noteRepo) Upsert(ctx context.Context, tx *gorm.DB, note types.Note) error {
    nr.log.Info("Starting Upsert Note now...", "noteID", note.ID)

    // 1) Transaction
    transaction := tx
    if transaction == nil {
        transaction = nr.db
    }

    // 2) Insert or update on id, scoped to the author
    if err := transaction.WithContext(ctx).
        Clauses(clause.OnConflict{
            Columns:   []clause.Column{{Name: "id"}},
            DoUpdates: clause.AssignmentColumns([]string{"title", "content", "last_modified", "updated_at"}),
            Where: clause.Where{Exprs: []clause.Expression{
                clause.Expr{SQL: `"note"."author_id" = excluded.author_id`},
            }},
        }).
        Create(&note).Error; err != nil {
        nr.log.Error("Failed to upsert note", "error", err)
        return err
    }
    nr.log.Info("Successfully upserted note", "noteID", note.ID)
    return nil
}

func (nr *noteRepo) Delete(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, noteID string) error {
    nr.log.Info("Starting Delete Note now...", "noteID", noteID)

    transaction := tx
    if transaction == nil {
        transaction = nr.db
    }
    if err := transaction.WithContext(ctx).
        Where("id = ? AND author_id = ?", noteID, authorID).
        Delete(&types.Note{}).Error; err != nil {
        nr.log.Error("Failed to delete note", "error", err)
        return err
    }
    nr.log.Info("Successfully deleted note", "noteID", noteID)
    return nil
}

func (nr *noteRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
    transaction := tx
    if transaction == nil {
        transaction = nr.db
    }
    var count int64
    if err := transaction.WithContext(ctx).Model(&types.Note{}).Count(&count).Error; err != nil {
        nr.log.Error("Failed to count notes", "error", err)
        return 0, err
    }
    return count, nil
}
