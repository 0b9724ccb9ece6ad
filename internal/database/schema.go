package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Session is the working record for one user session. It lives only as long
// as the session does: rows are deleted when the session ends or expires, so
// the database never carries state across sessions.
type Session struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	CreationTime   time.Time
	LastActiveTime time.Time

	DatasetName sql.NullString
	DatasetRows int `gorm:"default:0"`

	Profile   datatypes.JSON
	Narrative sql.NullString
}
