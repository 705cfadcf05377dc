package domain

// ExperiencePerLevel is the experience span of a single level.
const ExperiencePerLevel = 1000

// LevelForExperience derives the level from total experience. This is the
// single source of truth for leveling; every write path that touches
// experience refreshes the stored level from it.
func LevelForExperience(experience int) int {
	if experience < 0 {
		return 1
	}
	return 1 + experience/ExperiencePerLevel
}

// ApplyLeveling refreshes the derived level fields on p.
func ApplyLeveling(p *UserProfile) {
	p.Level = LevelForExperience(p.Experience)
	p.MaxExperience = ExperiencePerLevel
}
