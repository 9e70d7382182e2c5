package contact

import (
	"context"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"gorm.io/datatypes"
)

type Contact struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"id"`
	OrgID     string    `gorm:"size:64;not null;index" json:"-"`
	BatchID   *uint64   `gorm:"index" json:"-"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	Phone     string    `gorm:"size:20;index" json:"phone,omitempty"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Company   string    `gorm:"size:255" json:"company,omitempty"`
	Source    string    `gorm:"size:32" json:"source"`
	CreatedBy string    `gorm:"size:64" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Contact) TableName() string { return "contacts" }

type BatchStatus string

const (
	BatchQueued    BatchStatus = "queued"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
	BatchCancelled BatchStatus = "cancelled"
	BatchReverted  BatchStatus = "reverted"
)

var (
	ErrBatchNotFound = apperr.NotFound("import_not_found", "import batch not found")
	ErrBatchFinished = apperr.State("import_finished", "import batch already finished")
	ErrNotRevertible = apperr.State("import_not_revertible", "only finished or cancelled imports can be reverted")
	ErrNoIDs         = apperr.Validation("ids_required", "at least one id is required")
	ErrEmptyUpload   = apperr.Validation("csv_empty", "uploaded file is empty")
)

// ImportBatch tracks one uploaded CSV through the background worker.
type ImportBatch struct {
	ID                  uint64         `gorm:"primaryKey;column:id" json:"-"`
	BatchID             string         `gorm:"size:36;not null;uniqueIndex:ux_import_batches_batch_id" json:"batch_id"`
	OrgID               string         `gorm:"size:64;not null;index" json:"-"`
	FileName            string         `gorm:"size:255" json:"file_name"`
	Status              BatchStatus    `gorm:"size:16;not null" json:"status"`
	CreateApplications  bool           `gorm:"not null" json:"create_applications"`
	RawCSV              string         `json:"-"`
	TotalRows           int            `gorm:"not null;default:0" json:"total_rows"`
	ProcessedRows       int            `gorm:"not null;default:0" json:"processed_rows"`
	CreatedCount        int            `gorm:"not null;default:0" json:"created_count"`
	ApplicationsCreated int            `gorm:"not null;default:0" json:"applications_created"`
	FailedCount         int            `gorm:"not null;default:0" json:"failed_count"`
	Errors              datatypes.JSON `json:"errors,omitempty"`
	JobID               string         `gorm:"size:36" json:"job_id"`
	CreatedBy           string         `gorm:"size:64" json:"created_by"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ImportBatch) TableName() string { return "contact_import_batches" }

type Repository interface {
	Create(ctx context.Context, c *Contact) error
	// ListByIDs is unscoped so callers can detect ids from another org.
	ListByIDs(ctx context.Context, ids []uint64) ([]Contact, error)
	ListByBatch(ctx context.Context, batchID uint64) ([]Contact, error)
	DeleteByIDs(ctx context.Context, orgID string, ids []uint64) (int64, error)
}

type BatchRepository interface {
	Create(ctx context.Context, b *ImportBatch) error
	Save(ctx context.Context, b *ImportBatch) error
	GetByBatchID(ctx context.Context, orgID, batchID string) (*ImportBatch, error)
	GetByBatchIDForUpdate(ctx context.Context, orgID, batchID string) (*ImportBatch, error)
	// Status reads the current status without locking.
	Status(ctx context.Context, id uint64) (BatchStatus, error)
	// SaveProgress writes counters and errors only, never the status.
	SaveProgress(ctx context.Context, b *ImportBatch) error
	// SetStatus moves the batch to `to` only from one of `from`; false means
	// the batch was in some other status.
	SetStatus(ctx context.Context, id uint64, to BatchStatus, from ...BatchStatus) (bool, error)
}
