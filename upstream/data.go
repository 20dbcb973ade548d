package upstream

import (
	"encoding/json"
	"time"
)

// User is a GitHub profile.
type User struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	HTMLURL     string    `json:"html_url"`
	Bio         string    `json:"bio"`
	Location    string    `json:"location"`
	Blog        string    `json:"blog"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repo is one repository in a listing.
type Repo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Language    string    `json:"language"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	Fork        bool      `json:"fork"`
	Topics      []string  `json:"topics,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	PushedAt    time.Time `json:"pushed_at"`
}

// Stats summarizes a user's own repositories.
type Stats struct {
	TotalRepos  int            `json:"totalRepos"`
	TotalStars  int            `json:"totalStars"`
	TotalForks  int            `json:"totalForks"`
	Languages   map[string]int `json:"languages"`
	MostStarred string         `json:"mostStarred,omitempty"`
}

// RateLimit is the core API quota.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	Reset     time.Time `json:"reset"`
}

// Data holds exactly one of the variants, selected by Kind.
type Data struct {
	Kind      Kind
	User      *User
	Repos     []Repo
	Stats     *Stats
	RateLimit *RateLimit
}

// Empty reports whether the selected variant is missing.
func (d Data) Empty() bool {
	switch d.Kind {
	case KindUser:
		return d.User == nil
	case KindRepos:
		return d.Repos == nil
	case KindStats:
		return d.Stats == nil
	case KindRateLimit:
		return d.RateLimit == nil
	default:
		return true
	}
}

// MarshalJSON encodes the selected variant only.
func (d Data) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case KindUser:
		return json.Marshal(d.User)
	case KindRepos:
		return json.Marshal(d.Repos)
	case KindStats:
		return json.Marshal(d.Stats)
	case KindRateLimit:
		return json.Marshal(d.RateLimit)
	default:
		return []byte("null"), nil
	}
}

// summarize derives Stats from a repository listing. Forks are skipped.
func summarize(repos []Repo) *Stats {
	s := &Stats{Languages: map[string]int{}}
	best := -1
	for _, r := range repos {
		if r.Fork {
			continue
		}
		s.TotalRepos++
		s.TotalStars += r.Stars
		s.TotalForks += r.Forks
		if r.Language != "" {
			s.Languages[r.Language]++
		}
		if r.Stars > best {
			best = r.Stars
			s.MostStarred = r.Name
		}
	}
	return s
}
