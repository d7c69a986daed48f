package memory

import "trivia-session-service/internal/domain"

// SampleUserIDs are provisioned by the seed command and the in-memory store.
var SampleUserIDs = []string{"alice", "bob", "carol", "dave"}

// SampleQuestions is a small general-knowledge bank used when no database is configured.
func SampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "geo-1", CultureID: "global", CategoryID: "geography", Difficulty: "easy",
			Prompt: "What is the capital of France?", Options: []string{"Berlin", "Madrid", "Paris", "Rome"},
			CorrectAnswer: "Paris", Explanation: "Paris has been the French capital since 987.", Points: 10, TimeLimit: 20},
		{ID: "geo-2", CultureID: "global", CategoryID: "geography", Difficulty: "easy",
			Prompt: "Which is the largest ocean?", Options: []string{"Atlantic", "Indian", "Pacific", "Arctic"},
			CorrectAnswer: "Pacific", Points: 10, TimeLimit: 20},
		{ID: "geo-3", CultureID: "global", CategoryID: "geography", Difficulty: "medium",
			Prompt: "Which river flows through Baghdad?", Options: []string{"Nile", "Tigris", "Euphrates", "Jordan"},
			CorrectAnswer: "Tigris", Points: 20, TimeLimit: 30},
		{ID: "geo-4", CultureID: "global", CategoryID: "geography", Difficulty: "hard",
			Prompt: "What is the capital of Bhutan?", Options: []string{"Thimphu", "Paro", "Punakha", "Kathmandu"},
			CorrectAnswer: "Thimphu", Points: 30, TimeLimit: 45},
		{ID: "sci-1", CultureID: "global", CategoryID: "science", Difficulty: "easy",
			Prompt: "What is H2O commonly called?", Options: []string{"Salt", "Water", "Hydrogen", "Oxygen"},
			CorrectAnswer: "Water", Points: 10, TimeLimit: 20},
		{ID: "sci-2", CultureID: "global", CategoryID: "science", Difficulty: "medium",
			Prompt: "Which planet has the most moons?", Options: []string{"Jupiter", "Saturn", "Uranus", "Neptune"},
			CorrectAnswer: "Saturn", Explanation: "Saturn overtook Jupiter after the 2023 moon discoveries.", Points: 20, TimeLimit: 30},
		{ID: "sci-3", CultureID: "global", CategoryID: "science", Difficulty: "hard",
			Prompt: "What is the atomic number of tungsten?", Options: []string{"64", "74", "84", "92"},
			CorrectAnswer: "74", Points: 30, TimeLimit: 45},
		{ID: "his-1", CultureID: "global", CategoryID: "history", Difficulty: "easy",
			Prompt: "In which year did World War II end?", Options: []string{"1918", "1939", "1945", "1950"},
			CorrectAnswer: "1945", Points: 10, TimeLimit: 20},
		{ID: "his-2", CultureID: "global", CategoryID: "history", Difficulty: "medium",
			Prompt: "Who was the first emperor of Rome?", Options: []string{"Julius Caesar", "Augustus", "Nero", "Trajan"},
			CorrectAnswer: "Augustus", Points: 20, TimeLimit: 30},
		{ID: "his-3", CultureID: "global", CategoryID: "history", Difficulty: "hard",
			Prompt: "Which treaty ended the Thirty Years' War?", Options: []string{"Utrecht", "Versailles", "Westphalia", "Tordesillas"},
			CorrectAnswer: "Westphalia", Points: 30, TimeLimit: 45},
		{ID: "art-1", CultureID: "global", CategoryID: "arts", Difficulty: "easy",
			Prompt: "Who painted the Mona Lisa?", Options: []string{"Michelangelo", "Raphael", "Leonardo da Vinci", "Donatello"},
			CorrectAnswer: "Leonardo da Vinci", Points: 10, TimeLimit: 20},
		{ID: "art-2", CultureID: "global", CategoryID: "arts", Difficulty: "medium",
			Prompt: "Which composer wrote The Four Seasons?", Options: []string{"Bach", "Vivaldi", "Handel", "Mozart"},
			CorrectAnswer: "Vivaldi", Points: 20, TimeLimit: 30},
	}
}

// NewSampleStore returns a Store with SampleUserIDs provisioned.
func NewSampleStore() *Store {
	s := NewStore()
	for _, id := range SampleUserIDs {
		s.PutUser(domain.UserStats{UserID: id})
	}
	return s
}
