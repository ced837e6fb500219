package world

// Scenario is one location in the server-authored world. The server owns
// the canonical copy; this struct is the client-side mirror, mutated only
// through changeset application.
type Scenario struct {
	ID                 string `json:"id"`
	Name               string `json:"name,omitempty"`
	SummaryDescription string `json:"summary_description,omitempty"`
	VisualDescription  string `json:"visual_description,omitempty"`
	NarrativeContext   string `json:"narrative_context,omitempty"`
	IndoorOrOutdoor    string `json:"indoor_or_outdoor,omitempty"`
	Type               string `json:"type,omitempty"`
	Zone               string `json:"zone,omitempty"`

	// ImagePath is the server-side path of the background image. The bitmap
	// itself is resolved asynchronously and attached by the session.
	ImagePath  string `json:"image_path,omitempty"`
	Background []byte `json:"-"`

	// CharacterIDs is the set of characters currently present here.
	CharacterIDs map[string]struct{} `json:"character_ids,omitempty"`

	// ConnectionsByDirection maps direction label to connection ID. At most
	// one connection per direction.
	ConnectionsByDirection map[string]string `json:"connections_by_direction,omitempty"`
}

// NewScenario returns a Scenario with its maps initialized.
func NewScenario(id string) *Scenario {
	return &Scenario{
		ID:                     id,
		CharacterIDs:           make(map[string]struct{}),
		ConnectionsByDirection: make(map[string]string),
	}
}
