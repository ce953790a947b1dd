package persona

// Key identifies one of the fixed coaching personas.
type Key string

const (
	Default       Key = "default"
	Socratic      Key = "socratic"
	Executive     Key = "executive"
	Cheerleader   Key = "cheerleader"
	DrillSergeant Key = "drill-sergeant"
)

// Keys lists the closed persona set in display order.
func Keys() []Key {
	return []Key{Default, Socratic, Executive, Cheerleader, DrillSergeant}
}

// Known reports whether k belongs to the persona set.
func (k Key) Known() bool {
	for _, candidate := range Keys() {
		if candidate == k {
			return true
		}
	}
	return false
}

// Persona captures the coaching voice exposed to the frontend.
type Persona struct {
	ID          Key    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	Tone        string `json:"tone" yaml:"tone"`
	Voice       string `json:"-" yaml:"voice"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Seed provides the built-in coaching personas. The default persona has no voice
// fragment; the rubric prompt alone drives it.
func Seed() []Persona {
	return []Persona{
		{
			ID:          Default,
			Name:        "RUFfie",
			Title:       "Risk Up Front coach",
			Tone:        "friendly, direct",
			Description: "The standard coach: restates, diagrams, grades and asks one question.",
		},
		{
			ID:    Socratic,
			Name:  "Socrates",
			Title: "Questioning mentor",
			Tone:  "patient, inquisitive",
			Voice: "Coach in the voice of Socrates. Lead with questions rather than statements, " +
				"acknowledge what the author already knows, and let them discover the missing Cause, Effect or Impact themselves.",
			Description: "Guides by asking rather than telling.",
		},
		{
			ID:    Executive,
			Name:  "The Executive",
			Title: "Program director",
			Tone:  "brisk, outcome-focused",
			Voice: "Coach like a busy program director. Keep every section to one or two sentences, " +
				"frame Impact in cost, schedule and scope terms, and push for a quantified consequence.",
			Description: "Short, numbers-first feedback for leadership briefings.",
		},
		{
			ID:    Cheerleader,
			Name:  "Cheerleader",
			Title: "Encouraging teammate",
			Tone:  "upbeat, warm",
			Voice: "Coach like an enthusiastic teammate. Celebrate what the statement does well before " +
				"pointing out gaps, and keep the coaching question encouraging.",
			Description: "Positive reinforcement for first-time risk writers.",
		},
		{
			ID:    DrillSergeant,
			Name:  "Drill Sergeant",
			Title: "No-nonsense instructor",
			Tone:  "blunt, demanding",
			Voice: "Coach like a drill sergeant. Be blunt and demanding, call out vague words such as " +
				"\"might\" or \"issues\" directly, and insist on a concrete Cause before anything else. Stay professional.",
			Description: "Tough love for statements that keep slipping.",
		},
	}
}
