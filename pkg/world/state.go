package world

import "sort"

// State is the client-side mirror of the server's world graph: scenarios,
// connections between them, characters, and per-character contextual
// options, plus the checkpoint the mirror is synchronized to. All mutation
// goes through the changeset applier on the session goroutine; State does
// no locking of its own.
type State struct {
	Scenarios   map[string]*Scenario
	Connections map[string]*Connection
	Characters  map[string]*Character

	// Options holds contextual options per character, keyed by condition ID.
	Options map[string]map[string]*ContextualOption

	// CheckpointID is the opaque token of the last fully applied changeset.
	CheckpointID string

	PlayerCharacterID string
	CurrentScenarioID string
}

// NewState returns an empty world mirror, ready for a full-state changeset.
func NewState() *State {
	return &State{
		Scenarios:   make(map[string]*Scenario),
		Connections: make(map[string]*Connection),
		Characters:  make(map[string]*Character),
		Options:     make(map[string]map[string]*ContextualOption),
	}
}

// Scenario returns the scenario with the given ID, or nil.
func (s *State) Scenario(id string) *Scenario {
	return s.Scenarios[id]
}

// Connection returns the connection with the given ID, or nil.
func (s *State) Connection(id string) *Connection {
	return s.Connections[id]
}

// Character returns the character with the given ID, or nil.
func (s *State) Character(id string) *Character {
	return s.Characters[id]
}

// AllScenarios returns every scenario, sorted by ID for determinism.
func (s *State) AllScenarios() []*Scenario {
	out := make([]*Scenario, 0, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllConnections returns every connection, sorted by ID for determinism.
func (s *State) AllConnections() []*Connection {
	out := make([]*Connection, 0, len(s.Connections))
	for _, c := range s.Connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpsertScenario stores the scenario, replacing any previous entry.
func (s *State) UpsertScenario(sc *Scenario) {
	s.Scenarios[sc.ID] = sc
}

// RemoveScenario deletes a scenario. Connections referencing it are left
// in place; lookups through them resolve to no endpoint rather than error.
func (s *State) RemoveScenario(id string) {
	delete(s.Scenarios, id)
}

// UpsertCharacter stores the character, replacing any previous entry.
func (s *State) UpsertCharacter(c *Character) {
	s.Characters[c.ID] = c
}

// RemoveCharacter deletes a character and scrubs it from every scenario's
// resident set.
func (s *State) RemoveCharacter(id string) {
	delete(s.Characters, id)
	s.RemoveCharacterFromScenarios(id)
	delete(s.Options, id)
}

// UpsertConnection stores the connection, replacing any previous entry.
func (s *State) UpsertConnection(c *Connection) {
	s.Connections[c.ID] = c
}

// RemoveConnection deletes a connection and scrubs its ID out of every
// scenario's direction map, not just the nominal endpoints, since an
// update may have re-pointed the endpoints before the remove arrived.
func (s *State) RemoveConnection(id string) {
	delete(s.Connections, id)
	s.RemoveConnectionFromDirections(id)
}

// SetScenarioConnection records connectionID under direction on the given
// scenario. A missing scenario is ignored.
func (s *State) SetScenarioConnection(scenarioID, direction, connectionID string) {
	sc := s.Scenarios[scenarioID]
	if sc == nil {
		return
	}
	if sc.ConnectionsByDirection == nil {
		sc.ConnectionsByDirection = make(map[string]string)
	}
	sc.ConnectionsByDirection[direction] = connectionID
}

// RemoveConnectionFromDirections deletes every direction entry, on every
// scenario, that resolves to connectionID.
func (s *State) RemoveConnectionFromDirections(connectionID string) {
	for _, sc := range s.Scenarios {
		for dir, id := range sc.ConnectionsByDirection {
			if id == connectionID {
				delete(sc.ConnectionsByDirection, dir)
			}
		}
	}
}

// SetResidentScenario moves a character to scenarioID, enforcing the
// single-residency invariant: the character is scrubbed from every other
// scenario's resident set first. An empty scenarioID just removes the
// character from wherever it was.
func (s *State) SetResidentScenario(characterID, scenarioID string) {
	s.RemoveCharacterFromScenarios(characterID)
	if c := s.Characters[characterID]; c != nil {
		c.PresentInScenario = scenarioID
	}
	if scenarioID == "" {
		return
	}
	sc := s.Scenarios[scenarioID]
	if sc == nil {
		return
	}
	if sc.CharacterIDs == nil {
		sc.CharacterIDs = make(map[string]struct{})
	}
	sc.CharacterIDs[characterID] = struct{}{}
}

// RemoveCharacterFromScenarios scrubs characterID from every scenario's
// resident set.
func (s *State) RemoveCharacterFromScenarios(characterID string) {
	for _, sc := range s.Scenarios {
		delete(sc.CharacterIDs, characterID)
	}
}

// ResidentCharacters returns the characters present in a scenario, sorted
// by ID.
func (s *State) ResidentCharacters(scenarioID string) []*Character {
	sc := s.Scenarios[scenarioID]
	if sc == nil {
		return nil
	}
	out := make([]*Character, 0, len(sc.CharacterIDs))
	for id := range sc.CharacterIDs {
		if c := s.Characters[id]; c != nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpsertContextualOption stores an option for a character, keyed by its
// condition ID.
func (s *State) UpsertContextualOption(characterID string, opt *ContextualOption) {
	if s.Options[characterID] == nil {
		s.Options[characterID] = make(map[string]*ContextualOption)
	}
	s.Options[characterID][opt.ConditionID] = opt
}

// ContextualOption returns the option for (characterID, conditionID), or nil.
func (s *State) ContextualOption(characterID, conditionID string) *ContextualOption {
	return s.Options[characterID][conditionID]
}

// RemoveContextualOption deletes the option for (characterID, conditionID).
func (s *State) RemoveContextualOption(characterID, conditionID string) {
	delete(s.Options[characterID], conditionID)
	if len(s.Options[characterID]) == 0 {
		delete(s.Options, characterID)
	}
}

// ContextualOptions returns a character's options sorted by condition ID,
// so the presenter sees a stable menu order regardless of arrival order.
func (s *State) ContextualOptions(characterID string) []*ContextualOption {
	byCondition := s.Options[characterID]
	if len(byCondition) == 0 {
		return nil
	}
	out := make([]*ContextualOption, 0, len(byCondition))
	for _, opt := range byCondition {
		out = append(out, opt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConditionID < out[j].ConditionID })
	return out
}

// ScenariosWithinRadius returns the set of scenario IDs reachable from
// fromID in at most radius hops. Radius 0 is just fromID. Connections
// whose far endpoint no longer exists are skipped. An unknown fromID
// yields an empty set.
func (s *State) ScenariosWithinRadius(fromID string, radius int) map[string]struct{} {
	out := make(map[string]struct{})
	if s.Scenarios[fromID] == nil {
		return out
	}
	out[fromID] = struct{}{}

	frontier := []string{fromID}
	for hop := 0; hop < radius && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			sc := s.Scenarios[id]
			if sc == nil {
				continue
			}
			for _, connID := range sc.ConnectionsByDirection {
				conn := s.Connections[connID]
				if conn == nil {
					continue
				}
				other := conn.OtherEndpoint(id)
				if other == "" || s.Scenarios[other] == nil {
					continue
				}
				if _, seen := out[other]; seen {
					continue
				}
				out[other] = struct{}{}
				next = append(next, other)
			}
		}
		frontier = next
	}
	return out
}
