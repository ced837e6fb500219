package world

// IdentityAttributes is who the character is on paper.
type IdentityAttributes struct {
	FullName   string `json:"full_name,omitempty"`
	Alias      string `json:"alias,omitempty"`
	Age        int    `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Profession string `json:"profession,omitempty"`
	Species    string `json:"species,omitempty"`
	Alignment  string `json:"alignment,omitempty"`
}

// PhysicalAttributes describes appearance.
type PhysicalAttributes struct {
	Appearance          string `json:"appearance,omitempty"`
	VisualPrompt        string `json:"visual_prompt,omitempty"`
	DistinctiveFeatures string `json:"distinctive_features,omitempty"`
	ClothingStyle       string `json:"clothing_style,omitempty"`
	CharacteristicItems string `json:"characteristic_items,omitempty"`
}

// PsychologicalAttributes describes personality and backstory.
type PsychologicalAttributes struct {
	PersonalitySummary string   `json:"personality_summary,omitempty"`
	PersonalityTags    []string `json:"personality_tags,omitempty"`
	Motivations        []string `json:"motivations,omitempty"`
	Values             []string `json:"values,omitempty"`
	FearsAndWeaknesses []string `json:"fears_and_weaknesses,omitempty"`
	CommunicationStyle string   `json:"communication_style,omitempty"`
	Backstory          string   `json:"backstory,omitempty"`
	Quirks             string   `json:"quirks,omitempty"`
}

// KnowledgeAttributes is what the character knows.
type KnowledgeAttributes struct {
	BackgroundKnowledge string `json:"background_knowledge,omitempty"`
	AcquiredKnowledge   string `json:"acquired_knowledge,omitempty"`
}

// DynamicState is the character's transient emotional state.
type DynamicState struct {
	CurrentEmotion string `json:"current_emotion,omitempty"`
	ImmediateGoal  string `json:"immediate_goal,omitempty"`
}

// NarrativeAttributes is the character's role in the story.
type NarrativeAttributes struct {
	NarrativeRole     string   `json:"narrative_role,omitempty"`
	CurrentImportance int      `json:"current_narrative_importance,omitempty"`
	NarrativePurposes []string `json:"narrative_purposes,omitempty"`
}

// Character is one character in the world mirror. A character occupies at
// most one scenario at a time; PresentInScenario is kept in lockstep with
// that scenario's CharacterIDs set by the graph mutators.
type Character struct {
	ID                string `json:"id"`
	Type              string `json:"type,omitempty"`
	PresentInScenario string `json:"present_in_scenario,omitempty"`

	ImagePath string `json:"image_path,omitempty"`
	Portrait  []byte `json:"-"`

	Identity      IdentityAttributes      `json:"identity,omitempty"`
	Physical      PhysicalAttributes      `json:"physical,omitempty"`
	Psychological PsychologicalAttributes `json:"psychological,omitempty"`
	Knowledge     KnowledgeAttributes     `json:"knowledge,omitempty"`
	Dynamic       DynamicState            `json:"dynamic_state,omitempty"`
	Narrative     NarrativeAttributes     `json:"narrative,omitempty"`
}

// DisplayName prefers the alias, falling back to the full name and then
// the raw ID so the presenter always has something to show.
func (c *Character) DisplayName() string {
	if c.Identity.Alias != "" {
		return c.Identity.Alias
	}
	if c.Identity.FullName != "" {
		return c.Identity.FullName
	}
	return c.ID
}

// ContextualOption is a condition-gated interaction the player can trigger
// on a character. Options are keyed by (characterID, conditionID).
type ContextualOption struct {
	ConditionID string `json:"condition_id"`
	EventID     string `json:"event_id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MenuLabel   string `json:"menu_label,omitempty"`
	Repeatable  bool   `json:"is_repeatable,omitempty"`
}
