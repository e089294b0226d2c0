package migrations

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Run applies the entity store schema. Adapters do not automigrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(&entityRecord{})
}

// Entity schema mirrors the entitystore Postgres adapter.
type entityRecord struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;column:id"`
	ModelName      string         `gorm:"column:model_name;type:varchar(64);index:idx_entities_model_state"`
	ModelVersion   int            `gorm:"column:model_version;index:idx_entities_model_state"`
	State          string         `gorm:"column:state;type:varchar(64);index:idx_entities_model_state"`
	LastTransition string         `gorm:"column:last_transition;type:varchar(64)"`
	Transitions    pq.StringArray `gorm:"column:transitions;type:text[]"`
	Data           string         `gorm:"column:data;type:jsonb"`
	CreatedAt      time.Time      `gorm:"column:created_at;index"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (entityRecord) TableName() string { return "entities" }
