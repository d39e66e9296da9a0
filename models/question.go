package models

// Question is the server-side question record. It carries the answer key and
// must never be sent to clients; use Public for anything that leaves the server.
type Question struct {
	ID            int
	Text          string
	Options       []string
	Points        int
	CorrectAnswer string
}

// PublicQuestion is the client-facing projection of a Question.
type PublicQuestion struct {
	ID           int      `json:"id"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Points       int      `json:"points"`
}

func (q Question) Public() PublicQuestion {
	options := make([]string, len(q.Options))
	copy(options, q.Options)

	return PublicQuestion{
		ID:           q.ID,
		QuestionText: q.Text,
		Options:      options,
		Points:       q.Points,
	}
}
