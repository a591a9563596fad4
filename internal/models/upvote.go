package models

import "gorm.io/gorm"

// UpvoteRecord marks one user's support for one complaint. The composite
// unique index is what keeps a user from upvoting the same complaint twice
// even under concurrent toggles.
type UpvoteRecord struct {
	gorm.Model

	UserID      string `gorm:"type:text;not null;uniqueIndex:idx_upvote_user_complaint" json:"user_id"`
	ComplaintID uint   `gorm:"not null;uniqueIndex:idx_upvote_user_complaint" json:"complaint_id"`
}
