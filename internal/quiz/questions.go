package quiz

// Question is one multiple-choice quiz entry.
type Question struct {
	Text    string
	Options []string
	Answer  string
}

// bank is the fixed question rotation, broadcast in order and wrapping around.
var bank = []Question{
	{
		Text:    "What is the capital of France?",
		Options: []string{"Paris", "London", "Berlin", "Rome"},
		Answer:  "Paris",
	},
	{
		Text:    "Who wrote 'Hamlet'?",
		Options: []string{"Shakespeare", "Dickens", "Tolkien", "Hemingway"},
		Answer:  "Shakespeare",
	},
	{
		Text:    "What is 2 + 2?",
		Options: []string{"3", "4", "5", "6"},
		Answer:  "4",
	},
	{
		Text:    "Which planet is known as the Red Planet?",
		Options: []string{"Mars", "Venus", "Jupiter", "Saturn"},
		Answer:  "Mars",
	},
	{
		Text:    "What is the largest ocean on Earth?",
		Options: []string{"Pacific", "Atlantic", "Indian", "Arctic"},
		Answer:  "Pacific",
	},
	{
		Text:    "Which data structure uses FIFO (First In First Out)?",
		Options: []string{"Queue", "Stack", "Tree", "Graph"},
		Answer:  "Queue",
	},
	{
		Text:    "In networking, what does LAN stand for?",
		Options: []string{"Local Area Network", "Large Area Network", "Light Access Network", "Linked Array Network"},
		Answer:  "Local Area Network",
	},
	{
		Text:    "Which logic gate outputs HIGH only when both inputs are HIGH?",
		Options: []string{"AND", "OR", "XOR", "NOT"},
		Answer:  "AND",
	},
}

// QuestionAt returns the question for a broadcast index, wrapping around
// the bank.
func QuestionAt(index int) Question {
	if index < 0 {
		index = -index
	}
	return bank[index%len(bank)]
}

// BankSize reports the number of questions in rotation.
func BankSize() int { return len(bank) }
