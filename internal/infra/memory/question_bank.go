package memory

import "ecoquest-service/internal/domain"

// DefaultQuestionBank is the built-in question content, used when no
// postgres bank is configured. One set per declared topic.
func DefaultQuestionBank() map[domain.Topic]domain.QuestionSet {
	return map[domain.Topic]domain.QuestionSet{
		domain.TopicClimateChange: {
			Topic: domain.TopicClimateChange,
			Questions: []domain.Question{
				{
					ID:     "cc-1",
					Prompt: "Which gas is the largest driver of human-caused global warming?",
					Options: []domain.Option{
						{ID: "a", Text: "Oxygen"},
						{ID: "b", Text: "Carbon dioxide", Correct: true},
						{ID: "c", Text: "Nitrogen"},
						{ID: "d", Text: "Helium"},
					},
					Explanation: "CO2 from burning fossil fuels traps heat in the atmosphere.",
				},
				{
					ID:     "cc-2",
					Prompt: "What is the main cause of rising sea levels?",
					Options: []domain.Option{
						{ID: "a", Text: "More rainfall"},
						{ID: "b", Text: "Underwater volcanoes"},
						{ID: "c", Text: "Melting ice sheets and thermal expansion", Correct: true},
						{ID: "d", Text: "River deltas growing"},
					},
					Explanation: "Warming water expands and land ice adds volume as it melts.",
				},
				{
					ID:     "cc-3",
					Prompt: "Which activity releases the most greenhouse gases globally?",
					Options: []domain.Option{
						{ID: "a", Text: "Burning fossil fuels for energy", Correct: true},
						{ID: "b", Text: "Composting"},
						{ID: "c", Text: "Solar panel production"},
						{ID: "d", Text: "Fishing"},
					},
				},
				{
					ID:     "cc-4",
					Prompt: "What does the term 'carbon footprint' measure?",
					Options: []domain.Option{
						{ID: "a", Text: "The size of a coal mine"},
						{ID: "b", Text: "Total greenhouse gases caused by a person or activity", Correct: true},
						{ID: "c", Text: "The weight of a tree"},
						{ID: "d", Text: "Distance walked per year"},
					},
				},
				{
					ID:     "cc-5",
					Prompt: "Which of these helps slow climate change the most?",
					Options: []domain.Option{
						{ID: "a", Text: "Leaving lights on"},
						{ID: "b", Text: "Switching to renewable energy", Correct: true},
						{ID: "c", Text: "Driving bigger cars"},
						{ID: "d", Text: "Burning garden waste"},
					},
				},
			},
		},
		domain.TopicRecycling: {
			Topic: domain.TopicRecycling,
			Questions: []domain.Question{
				{
					ID:     "rc-1",
					Prompt: "Which material can be recycled almost indefinitely without losing quality?",
					Options: []domain.Option{
						{ID: "a", Text: "Plastic film"},
						{ID: "b", Text: "Glass", Correct: true},
						{ID: "c", Text: "Pizza boxes"},
						{ID: "d", Text: "Styrofoam"},
					},
					Explanation: "Glass and metals can be remelted again and again.",
				},
				{
					ID:     "rc-2",
					Prompt: "What should you do with batteries?",
					Options: []domain.Option{
						{ID: "a", Text: "Throw them in regular trash"},
						{ID: "b", Text: "Bury them"},
						{ID: "c", Text: "Take them to a collection point", Correct: true},
						{ID: "d", Text: "Burn them"},
					},
				},
				{
					ID:     "rc-3",
					Prompt: "Which of the three Rs reduces waste the most?",
					Options: []domain.Option{
						{ID: "a", Text: "Reduce", Correct: true},
						{ID: "b", Text: "Reuse"},
						{ID: "c", Text: "Recycle"},
						{ID: "d", Text: "They are equal"},
					},
					Explanation: "Not producing waste in the first place beats handling it later.",
				},
				{
					ID:     "rc-4",
					Prompt: "Roughly how long does a plastic bottle take to decompose in a landfill?",
					Options: []domain.Option{
						{ID: "a", Text: "1 year"},
						{ID: "b", Text: "10 years"},
						{ID: "c", Text: "Around 450 years", Correct: true},
						{ID: "d", Text: "It decomposes in weeks"},
					},
				},
			},
		},
		domain.TopicRenewableEnergy: {
			Topic: domain.TopicRenewableEnergy,
			Questions: []domain.Question{
				{
					ID:     "re-1",
					Prompt: "Which of these is a renewable energy source?",
					Options: []domain.Option{
						{ID: "a", Text: "Coal"},
						{ID: "b", Text: "Natural gas"},
						{ID: "c", Text: "Wind", Correct: true},
						{ID: "d", Text: "Diesel"},
					},
				},
				{
					ID:     "re-2",
					Prompt: "What do solar panels convert into electricity?",
					Options: []domain.Option{
						{ID: "a", Text: "Heat from the ground"},
						{ID: "b", Text: "Sunlight", Correct: true},
						{ID: "c", Text: "Wind pressure"},
						{ID: "d", Text: "Moonlight"},
					},
				},
				{
					ID:     "re-3",
					Prompt: "Hydroelectric power is generated from what?",
					Options: []domain.Option{
						{ID: "a", Text: "Flowing water", Correct: true},
						{ID: "b", Text: "Hydrogen gas"},
						{ID: "c", Text: "Ocean salt"},
						{ID: "d", Text: "Steam vents"},
					},
				},
				{
					ID:     "re-4",
					Prompt: "Which country generates nearly all its electricity from renewables?",
					Options: []domain.Option{
						{ID: "a", Text: "Iceland", Correct: true},
						{ID: "b", Text: "Australia"},
						{ID: "c", Text: "Poland"},
						{ID: "d", Text: "Saudi Arabia"},
					},
					Explanation: "Iceland runs on geothermal and hydro power.",
				},
			},
		},
		domain.TopicWaterConservation: {
			Topic: domain.TopicWaterConservation,
			Questions: []domain.Question{
				{
					ID:     "wc-1",
					Prompt: "What percentage of Earth's water is fresh water?",
					Options: []domain.Option{
						{ID: "a", Text: "About 50%"},
						{ID: "b", Text: "About 25%"},
						{ID: "c", Text: "About 3%", Correct: true},
						{ID: "d", Text: "About 97%"},
					},
				},
				{
					ID:     "wc-2",
					Prompt: "Which household change saves the most water?",
					Options: []domain.Option{
						{ID: "a", Text: "Fixing leaking taps and toilets", Correct: true},
						{ID: "b", Text: "Washing dishes under running water"},
						{ID: "c", Text: "Longer showers"},
						{ID: "d", Text: "Watering the lawn at noon"},
					},
				},
				{
					ID:     "wc-3",
					Prompt: "Why should gardens be watered in the early morning?",
					Options: []domain.Option{
						{ID: "a", Text: "Plants sleep at night"},
						{ID: "b", Text: "Less water evaporates", Correct: true},
						{ID: "c", Text: "Water is cheaper then"},
						{ID: "d", Text: "It scares pests away"},
					},
				},
			},
		},
		domain.TopicBiodiversity: {
			Topic: domain.TopicBiodiversity,
			Questions: []domain.Question{
				{
					ID:     "bd-1",
					Prompt: "What does biodiversity describe?",
					Options: []domain.Option{
						{ID: "a", Text: "The variety of life in an ecosystem", Correct: true},
						{ID: "b", Text: "The number of biomes on Earth"},
						{ID: "c", Text: "Only the number of plant species"},
						{ID: "d", Text: "The size of a forest"},
					},
				},
				{
					ID:     "bd-2",
					Prompt: "Which is the biggest driver of species extinction today?",
					Options: []domain.Option{
						{ID: "a", Text: "Meteor strikes"},
						{ID: "b", Text: "Habitat loss", Correct: true},
						{ID: "c", Text: "Volcanoes"},
						{ID: "d", Text: "Earthquakes"},
					},
				},
				{
					ID:     "bd-3",
					Prompt: "Why are bees important to ecosystems?",
					Options: []domain.Option{
						{ID: "a", Text: "They produce oxygen"},
						{ID: "b", Text: "They pollinate plants", Correct: true},
						{ID: "c", Text: "They clean rivers"},
						{ID: "d", Text: "They eat invasive species"},
					},
					Explanation: "Around a third of food crops depend on pollinators.",
				},
				{
					ID:     "bd-4",
					Prompt: "What is a keystone species?",
					Options: []domain.Option{
						{ID: "a", Text: "The largest animal in a habitat"},
						{ID: "b", Text: "A species other species heavily depend on", Correct: true},
						{ID: "c", Text: "Any endangered species"},
						{ID: "d", Text: "A species made of stone"},
					},
				},
			},
		},
	}
}
