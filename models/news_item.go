package models

// NewsItem is an item pulled from the external news source. Its id is the source's id.
type NewsItem struct {
	ID          int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Author      string `gorm:"size:120" json:"by"`
	Descendants int    `json:"descendants"`
	Kids        string `gorm:"type:text" json:"kids"` // comma separated child ids
	Score       int    `json:"score"`
	Title       string `gorm:"size:255" json:"title"`
	Text        string `gorm:"type:text" json:"text"`
	URL         string `gorm:"size:500" json:"url"`
	ItemType    string `gorm:"size:50" json:"type"`
	Time        int64  `gorm:"index" json:"time"` // unix seconds
}
