package domain

// Badge is a closed set of achievement identifiers. The profile stores badge
// ids as strings; mapping to display metadata goes through BadgeInfo so an
// unknown id is an error instead of a silent blank icon.
type Badge string

const (
	BadgeFirstQuiz    Badge = "first-quiz"
	BadgeQuizMaster   Badge = "quiz-master"
	BadgeEcoWarrior   Badge = "eco-warrior"
	BadgeTreePlanter  Badge = "tree-planter"
	BadgeStreakKeeper Badge = "streak-keeper"
)

// BadgeMeta is the display metadata for a badge.
type BadgeMeta struct {
	ID    Badge  `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// Badges lists every declared badge.
func Badges() []Badge {
	return []Badge{
		BadgeFirstQuiz,
		BadgeQuizMaster,
		BadgeEcoWarrior,
		BadgeTreePlanter,
		BadgeStreakKeeper,
	}
}

// BadgeInfo maps a badge to its display metadata, or ErrUnknownBadge.
func BadgeInfo(b Badge) (BadgeMeta, error) {
	switch b {
	case BadgeFirstQuiz:
		return BadgeMeta{ID: b, Title: "First Quiz", Icon: "🌱", Color: "#4CAF50"}, nil
	case BadgeQuizMaster:
		return BadgeMeta{ID: b, Title: "Quiz Master", Icon: "🧠", Color: "#9C27B0"}, nil
	case BadgeEcoWarrior:
		return BadgeMeta{ID: b, Title: "Eco Warrior", Icon: "🌍", Color: "#2196F3"}, nil
	case BadgeTreePlanter:
		return BadgeMeta{ID: b, Title: "Tree Planter", Icon: "🌳", Color: "#795548"}, nil
	case BadgeStreakKeeper:
		return BadgeMeta{ID: b, Title: "Streak Keeper", Icon: "⚡", Color: "#FF9800"}, nil
	default:
		return BadgeMeta{}, ErrUnknownBadge
	}
}
