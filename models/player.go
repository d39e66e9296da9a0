package models

// Player is a room participant. Answers has one slot per question in the room;
// a nil slot means the question has not been answered.
type Player struct {
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Answers  []*string `json:"answers"`
	Finished bool      `json:"finished_game"`
}

func NewPlayer(name string, questionCount int) *Player {
	return &Player{
		Name:    name,
		Answers: make([]*string, questionCount),
	}
}

// Answered reports whether slot i holds an answer.
func (p *Player) Answered(i int) bool {
	return i >= 0 && i < len(p.Answers) && p.Answers[i] != nil
}

// Complete reports whether every slot holds an answer.
func (p *Player) Complete() bool {
	for _, a := range p.Answers {
		if a == nil {
			return false
		}
	}
	return true
}
