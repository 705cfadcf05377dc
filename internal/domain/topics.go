package domain

// Topic identifies one of the fixed quiz question banks. Adding a variant
// requires extending Topics and the switch in Title, which keeps the mapping
// checked at compile review rather than failing at runtime on a stray string.
type Topic string

const (
	TopicClimateChange     Topic = "climate-change"
	TopicRecycling         Topic = "recycling"
	TopicRenewableEnergy   Topic = "renewable-energy"
	TopicWaterConservation Topic = "water-conservation"
	TopicBiodiversity      Topic = "biodiversity"
)

// Topics lists every valid topic in display order.
func Topics() []Topic {
	return []Topic{
		TopicClimateChange,
		TopicRecycling,
		TopicRenewableEnergy,
		TopicWaterConservation,
		TopicBiodiversity,
	}
}

// Valid reports whether t is one of the declared topics.
func (t Topic) Valid() bool {
	_, err := t.Title()
	return err == nil
}

// Title returns the human-readable topic name, or ErrUnknownTopic.
func (t Topic) Title() (string, error) {
	switch t {
	case TopicClimateChange:
		return "Climate Change", nil
	case TopicRecycling:
		return "Recycling & Waste", nil
	case TopicRenewableEnergy:
		return "Renewable Energy", nil
	case TopicWaterConservation:
		return "Water Conservation", nil
	case TopicBiodiversity:
		return "Biodiversity", nil
	default:
		return "", ErrUnknownTopic
	}
}
