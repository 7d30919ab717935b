package profile

// Record is the per-user document: everything the application remembers
// about one user. Username is the unique key.
type Record struct {
	Username       string          `json:"username"`
	ChatHistory    []ChatMessage   `json:"chatHistory"`
	Suggestions    []Suggestion    `json:"suggestions"`
	DashboardData  map[string]any  `json:"dashboardData"`
	Taglines       Taglines        `json:"taglines"`
	CompletedItems map[string]bool `json:"completedItems"` // suggestion id → done; authoritative over Suggestion.Completed
}

// ChatMessage is one entry of the chat history. Timestamp is epoch milliseconds.
type ChatMessage struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Category classifies a Suggestion.
type Category string

const (
	CategoryActivities Category = "activities"
	CategoryMusic      Category = "music"
	CategoryVideos     Category = "videos"
	CategoryBooks      Category = "books"
	CategoryMeditation Category = "meditation"
	CategorySelfCare   Category = "self-care"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryActivities,
	CategoryMusic,
	CategoryVideos,
	CategoryBooks,
	CategoryMeditation,
	CategorySelfCare,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Suggestion is one recommended activity or piece of content.
type Suggestion struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Duration    string   `json:"duration,omitempty"`
	Completed   bool     `json:"completed"`
	VideoID     string   `json:"videoId,omitempty"`
}

// Taglines are the generated strings used to seed recommendation queries.
// The list blocks keep names and details index-aligned.
type Taglines struct {
	Music               string            `json:"music"`
	Video               string            `json:"video"`
	Books               BookList          `json:"books"`
	SelfCare            SelfCareList      `json:"selfcare"`
	MeditationPractices MeditationList    `json:"meditationpractices"`
	MindfulActivities   MindfulActivities `json:"mindfulactivities"`
	DailyAffirmation    string            `json:"dailyAffirmation"`
}

type BookList struct {
	Names   []string `json:"booksnames"`
	Details []string `json:"bookdetails"`
}

type SelfCareList struct {
	Names   []string `json:"selfcarenames"`
	Details []string `json:"selfcaredetails"`
}

type MeditationList struct {
	Names   []string `json:"meditationnames"`
	Details []string `json:"meditationdetails"`
}

type MindfulActivities struct {
	Names   []string `json:"mindfulactivitiesnames"`
	Details []string `json:"mindfulactivitiesdetails"`
}

// Item is one name/detail pair taken from a tagline list block.
type Item struct {
	Name   string
	Detail string
}

// namedList is the shape shared by every tagline list block.
type namedList struct {
	block   string
	names   []string
	details []string
}

func (t Taglines) lists() []namedList {
	return []namedList{
		{"books", t.Books.Names, t.Books.Details},
		{"selfcare", t.SelfCare.Names, t.SelfCare.Details},
		{"meditationpractices", t.MeditationPractices.Names, t.MeditationPractices.Details},
		{"mindfulactivities", t.MindfulActivities.Names, t.MindfulActivities.Details},
	}
}

// Items returns the name/detail pairs of the named block ("books",
// "selfcare", "meditationpractices" or "mindfulactivities"). Pairs beyond
// the shorter of the two sequences are dropped.
func (t Taglines) Items(block string) []Item {
	for _, l := range t.lists() {
		if l.block != block {
			continue
		}
		n := min(len(l.names), len(l.details))
		items := make([]Item, n)
		for i := 0; i < n; i++ {
			items[i] = Item{Name: l.names[i], Detail: l.details[i]}
		}
		return items
	}
	return nil
}

// Patch is a partial Record. Nil fields are left untouched when applied.
type Patch struct {
	ChatHistory    *[]ChatMessage   `json:"chatHistory,omitempty"`
	Suggestions    *[]Suggestion    `json:"suggestions,omitempty"`
	DashboardData  *map[string]any  `json:"dashboardData,omitempty"`
	Taglines       *Taglines        `json:"taglines,omitempty"`
	CompletedItems *map[string]bool `json:"completedItems,omitempty"`
}
