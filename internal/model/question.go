package model

// Section enumerates the two exam sections. Networking questions always
// precede wifi-quant questions in the delivered paper.
type Section string

const (
	SectionNetworking Section = "networking"
	SectionWifiQuant  Section = "wifi-quant"
)

// Sections lists the sections in delivery order.
var Sections = []Section{SectionNetworking, SectionWifiQuant}

// Difficulty enumerates question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single multiple-choice question. Immutable once loaded.
type Question struct {
	ID            string     `json:"id"`
	Section       Section    `json:"section"`
	Text          string     `json:"question"`
	Options       [4]string  `json:"options"`
	CorrectOption int        `json:"correct_answer"`
	Difficulty    Difficulty `json:"difficulty"`
	ExamSet       string     `json:"exam_set"`
}

// QuestionForCandidate is a question without the correct answer, sent to
// candidates over the paper endpoint and the exam stream.
type QuestionForCandidate struct {
	ID      string    `json:"id"`
	Section Section   `json:"section"`
	Text    string    `json:"question"`
	Options [4]string `json:"options"`
}

// ForCandidate strips the answer key from a question.
func (q Question) ForCandidate() QuestionForCandidate {
	return QuestionForCandidate{
		ID:      q.ID,
		Section: q.Section,
		Text:    q.Text,
		Options: q.Options,
	}
}
