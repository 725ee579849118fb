package models

// Interaction kinds.
const (
	InteractionLike    = "like"
	InteractionDislike = "dislike"
)

// UserInteraction is one user's vote on one item. ItemID holds either a Post id or a NewsItem id;
// the composite primary key allows at most one row per (user, item).
type UserInteraction struct {
	UserID      uint   `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ItemID      int64  `gorm:"primaryKey;autoIncrement:false;index" json:"item_id"`
	Interaction string `gorm:"size:10;not null" json:"interaction"`
}

// TableName keeps the historical table name.
func (UserInteraction) TableName() string {
	return "user_interaction"
}
