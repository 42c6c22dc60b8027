package store

import "time"

type User struct {
	ID                    string
	FirstName             string
	LastName              string
	Email                 string
	PasswordHash          string
	Role                  string
	Timezone              string
	ProfilePicture        string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Entry is a single journal entry. Mood holds up to three emotion labels
// in the order the user picked them. A soft-deleted entry keeps DeletedAt
// set and is restorable until PurgedAt is stamped, after which the body,
// mood, tags and media are gone for good.
type Entry struct {
	ID        string
	UserID    string
	Body      string
	Mood      []string
	Tags      []string
	Media     []string
	DeletedAt *time.Time
	PurgedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type FollowUp struct {
	ID        string
	EntryID   string
	Body      string
	CreatedAt time.Time
}

// EntryFilter narrows ListEntries. Zero values mean "no constraint";
// Page is 1-based.
type EntryFilter struct {
	Tags     []string
	Moods    []string
	DateFrom *time.Time
	DateTo   *time.Time
	Deleted  bool
	Page     int
	Limit    int
}

type Feedback struct {
	ID        string
	UserID    string
	Subject   string
	Message   string
	Category  string
	Rating    int
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Visitor struct {
	ID         int64
	IPHash     string
	UserAgent  string
	AcceptLang string
	Referrer   string
	UserID     *string
	CreatedAt  time.Time
}

type VisitorStats struct {
	Total       int
	UniqueIPs   int
	LoggedIn    int
	LastVisitAt *time.Time
}

// RefreshSession is the Postgres fallback for refresh tokens when Redis
// is unavailable. Only the token hash is stored.
type RefreshSession struct {
	TokenHash string
	UserID    string
	JTI       string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type PasswordReset struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
