// Package family defines the core domain types and domain errors.
// It has zero external dependencies — everything here is pure Go.
package family

type Role string

const (
	RoleParent      Role = "parent"
	RoleChild       Role = "child"
	RoleGrandparent Role = "grandparent"
)

type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	FCMToken  string `json:"fcmToken,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type CalendarEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"` // YYYY-MM-DD
	Type        string `json:"type"` // birthday | appointment | anniversary
	CreatedBy   string `json:"createdBy"`
	CreatedAt   string `json:"createdAt"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"` // text | image
	ImageURL  string `json:"imageUrl,omitempty"`
}

type GalleryItem struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"` // image | video
	URL         string   `json:"url"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	UploadedBy  string   `json:"uploadedBy"`
	UploadedAt  string   `json:"uploadedAt"`
	Likes       []string `json:"likes"` // user IDs
}

type FoodOption struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Votes       []string `json:"votes"` // user IDs
	CreatedBy   string   `json:"createdBy"`
	CreatedAt   string   `json:"createdAt"`
}

type FoodVote struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Options     []FoodOption `json:"options"`
	EndTime     string       `json:"endTime"`
	IsActive    bool         `json:"isActive"`
	CreatedBy   string       `json:"createdBy"`
	CreatedAt   string       `json:"createdAt"`
}

type MissionStatus string

const (
	MissionPending   MissionStatus = "pending"
	MissionCompleted MissionStatus = "completed"
	MissionVerified  MissionStatus = "verified"
	MissionRejected  MissionStatus = "rejected"
)

type Mission struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Points       int           `json:"points"`
	AssignedTo   string        `json:"assignedTo"`
	AssignedBy   string        `json:"assignedBy"`
	Status       MissionStatus `json:"status"`
	DueDate      string        `json:"dueDate"`
	Proof        string        `json:"proof,omitempty"`
	RejectReason string        `json:"rejectReason,omitempty"`
	CompletedAt  string        `json:"completedAt,omitempty"`
	VerifiedAt   string        `json:"verifiedAt,omitempty"`
	CreatedAt    string        `json:"createdAt"`
}

type QuizQuestion struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Category  string `json:"category"` // hobby | food | memory | etc
	CreatedBy string `json:"createdBy"`
}

type QuizAttempt struct {
	QuestionID string `json:"questionId"`
	PlayerID   string `json:"playerId"`
	Answer     string `json:"answer"`
	IsCorrect  bool   `json:"isCorrect"`
	AnsweredAt string `json:"answeredAt"`
}
