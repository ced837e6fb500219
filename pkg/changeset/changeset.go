package changeset

// ChangeSet is a server-issued diff bundle plus the checkpoint it results
// in. A full-state response is the same shape with every entity expressed
// as an add operation. Pointer fields distinguish "absent, leave alone"
// from "present, overwrite", the same way the server emits them.
type ChangeSet struct {
	CheckpointID string   `json:"checkpoint_id"`
	Changes      *Changes `json:"changes,omitempty"`
}

// Changes groups the per-category operation lists.
type Changes struct {
	Map        *MapChanges       `json:"map,omitempty"`
	Characters *CharacterChanges `json:"characters,omitempty"`
	Events     *EventChanges     `json:"events,omitempty"`
}

// MapChanges carries scenario and connection operations. Scenarios are
// applied before connections, since connection ops reference scenario IDs.
type MapChanges struct {
	Scenarios   []ScenarioOp   `json:"scenarios,omitempty"`
	Connections []ConnectionOp `json:"connections,omitempty"`
}

// CharacterChanges carries character registry operations and, optionally,
// the player character assignment.
type CharacterChanges struct {
	PlayerCharacterID string        `json:"player_character_id,omitempty"`
	Registry          []CharacterOp `json:"registry,omitempty"`
}

// EventChanges carries contextual-option deltas keyed by character ID.
type EventChanges struct {
	CharacterOptionDeltas map[string][]OptionOp `json:"character_interaction_options_delta,omitempty"`
}

// ScenarioOp is one add/update/remove against a scenario.
type ScenarioOp struct {
	Op string `json:"op"`
	ID string `json:"id"`

	Name               *string `json:"name,omitempty"`
	SummaryDescription *string `json:"summary_description,omitempty"`
	VisualDescription  *string `json:"visual_description,omitempty"`
	NarrativeContext   *string `json:"narrative_context,omitempty"`
	IndoorOrOutdoor    *string `json:"indoor_or_outdoor,omitempty"`
	Type               *string `json:"type,omitempty"`
	Zone               *string `json:"zone,omitempty"`
	ImagePath          *string `json:"image_path,omitempty"`

	Connections []ConnectionChange `json:"connections,omitempty"`
}

// ConnectionChange is an inline edit to a scenario's direction map. A nil
// or empty Value on add/update clears the direction, same as a remove.
type ConnectionChange struct {
	Op        string  `json:"op"`
	Direction string  `json:"direction"`
	Value     *string `json:"value,omitempty"`
}

// ConnectionOp is one add/update/remove against a connection edge.
type ConnectionOp struct {
	Op string `json:"op"`
	ID string `json:"id"`

	ScenarioAID    *string  `json:"scenario_a_id,omitempty"`
	ScenarioBID    *string  `json:"scenario_b_id,omitempty"`
	DirectionFromA *string  `json:"direction_from_a,omitempty"`
	Type           *string  `json:"connection_type,omitempty"`
	TravelDesc     *string  `json:"travel_description,omitempty"`
	TraversalConds []string `json:"traversal_conditions,omitempty"`
	ExitAppearance *string  `json:"exit_appearance_description,omitempty"`
	Blocked        *bool    `json:"is_blocked,omitempty"`
}

// CharacterOp is one add/update/remove against a character. Attribute
// groups patch at the leaf: an update carrying only identity.alias leaves
// every other identity field untouched.
type CharacterOp struct {
	Op string `json:"op"`
	ID string `json:"id"`

	Type              *string `json:"type,omitempty"`
	ImagePath         *string `json:"image_path,omitempty"`
	PresentInScenario *string `json:"present_in_scenario,omitempty"`

	Identity      *IdentityPatch      `json:"identity,omitempty"`
	Physical      *PhysicalPatch      `json:"physical,omitempty"`
	Psychological *PsychologicalPatch `json:"psychological,omitempty"`
	Knowledge     *KnowledgePatch     `json:"knowledge,omitempty"`
	Dynamic       *DynamicStatePatch  `json:"dynamic_state,omitempty"`
	Narrative     *NarrativePatch     `json:"narrative,omitempty"`
}

// IdentityPatch patches world.IdentityAttributes.
type IdentityPatch struct {
	FullName   *string `json:"full_name,omitempty"`
	Alias      *string `json:"alias,omitempty"`
	Age        *int    `json:"age,omitempty"`
	Gender     *string `json:"gender,omitempty"`
	Profession *string `json:"profession,omitempty"`
	Species    *string `json:"species,omitempty"`
	Alignment  *string `json:"alignment,omitempty"`
}

// PhysicalPatch patches world.PhysicalAttributes.
type PhysicalPatch struct {
	Appearance          *string `json:"appearance,omitempty"`
	VisualPrompt        *string `json:"visual_prompt,omitempty"`
	DistinctiveFeatures *string `json:"distinctive_features,omitempty"`
	ClothingStyle       *string `json:"clothing_style,omitempty"`
	CharacteristicItems *string `json:"characteristic_items,omitempty"`
}

// PsychologicalPatch patches world.PsychologicalAttributes.
type PsychologicalPatch struct {
	PersonalitySummary *string  `json:"personality_summary,omitempty"`
	PersonalityTags    []string `json:"personality_tags,omitempty"`
	Motivations        []string `json:"motivations,omitempty"`
	Values             []string `json:"values,omitempty"`
	FearsAndWeaknesses []string `json:"fears_and_weaknesses,omitempty"`
	CommunicationStyle *string  `json:"communication_style,omitempty"`
	Backstory          *string  `json:"backstory,omitempty"`
	Quirks             *string  `json:"quirks,omitempty"`
}

// KnowledgePatch patches world.KnowledgeAttributes.
type KnowledgePatch struct {
	BackgroundKnowledge *string `json:"background_knowledge,omitempty"`
	AcquiredKnowledge   *string `json:"acquired_knowledge,omitempty"`
}

// DynamicStatePatch patches world.DynamicState.
type DynamicStatePatch struct {
	CurrentEmotion *string `json:"current_emotion,omitempty"`
	ImmediateGoal  *string `json:"immediate_goal,omitempty"`
}

// NarrativePatch patches world.NarrativeAttributes.
type NarrativePatch struct {
	NarrativeRole     *string  `json:"narrative_role,omitempty"`
	CurrentImportance *int     `json:"current_narrative_importance,omitempty"`
	NarrativePurposes []string `json:"narrative_purposes,omitempty"`
}

// OptionOp is one add/update/remove against a contextual option, keyed by
// condition ID within the per-character delta list.
type OptionOp struct {
	Op          string `json:"op"`
	ConditionID string `json:"condition_id"`

	EventID     *string `json:"event_id,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	MenuLabel   *string `json:"menu_label,omitempty"`
	Repeatable  *bool   `json:"is_repeatable,omitempty"`
}

// IsEmpty reports whether the changeset carries no operations at all.
func (cs *ChangeSet) IsEmpty() bool {
	if cs == nil || cs.Changes == nil {
		return true
	}
	c := cs.Changes
	if c.Map != nil && (len(c.Map.Scenarios) > 0 || len(c.Map.Connections) > 0) {
		return false
	}
	if c.Characters != nil && (len(c.Characters.Registry) > 0 || c.Characters.PlayerCharacterID != "") {
		return false
	}
	if c.Events != nil && len(c.Events.CharacterOptionDeltas) > 0 {
		return false
	}
	return true
}
