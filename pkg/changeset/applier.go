package changeset

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/jwebster45206/story-client/pkg/world"
)

// TargetKind identifies which entity map a side effect attaches to.
type TargetKind string

const (
	TargetScenario  TargetKind = "scenario"
	TargetCharacter TargetKind = "character"
)

// SideEffect is a deferred request the applier hands back to the caller
// instead of executing inline. The only kind today is an async image
// fetch: resolve ImagePath and attach the bitmap to the target entity,
// subject to the caller's stale-result defense.
type SideEffect struct {
	Target    TargetKind
	TargetID  string
	ImagePath string
}

// ErrNilApply is returned when Apply is handed a nil state or changeset.
var ErrNilApply = errors.New("changeset: nil state or changeset")

// Applier is a synchronous reducer from (world state, changeset) to the
// updated state plus side-effect requests. Malformed entries are skipped
// with a warning so one bad operation never poisons its siblings; the
// checkpoint is adopted only after every category has been walked.
type Applier struct {
	logger *slog.Logger
}

// NewApplier creates an applier that reports skipped entries to logger.
func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{logger: logger}
}

// Apply applies cs to st in place. Category order is scenarios, then
// connections, then characters, then contextual options: connections
// reference scenario IDs, and the direction-from-B of an edge can only be
// derived once direction-from-A is known.
func (a *Applier) Apply(st *world.State, cs *ChangeSet) ([]SideEffect, error) {
	if st == nil || cs == nil {
		return nil, ErrNilApply
	}

	var effects []SideEffect
	if cs.Changes != nil {
		if cs.Changes.Map != nil {
			effects = append(effects, a.applyScenarios(st, cs.Changes.Map.Scenarios)...)
			a.applyConnections(st, cs.Changes.Map.Connections)
		}
		if cs.Changes.Characters != nil {
			effects = append(effects, a.applyCharacters(st, cs.Changes.Characters)...)
		}
		if cs.Changes.Events != nil {
			a.applyOptions(st, cs.Changes.Events.CharacterOptionDeltas)
		}
	}

	if cs.CheckpointID != "" {
		st.CheckpointID = cs.CheckpointID
	}
	return effects, nil
}

func (a *Applier) applyScenarios(st *world.State, ops []ScenarioOp) []SideEffect {
	var effects []SideEffect
	for _, op := range ops {
		if op.Op == "" || op.ID == "" {
			a.logger.Warn("skipping scenario op without op or id", "op", op.Op, "id", op.ID)
			continue
		}

		switch op.Op {
		case "add":
			sc := world.NewScenario(op.ID)
			patchScenario(sc, &op)
			for _, change := range op.Connections {
				if change.Direction == "" {
					continue
				}
				if change.Value != nil && *change.Value != "" {
					sc.ConnectionsByDirection[change.Direction] = *change.Value
				}
			}
			st.UpsertScenario(sc)
			if sc.ImagePath != "" {
				effects = append(effects, SideEffect{Target: TargetScenario, TargetID: sc.ID, ImagePath: sc.ImagePath})
			}

		case "update":
			sc := st.Scenario(op.ID)
			if sc == nil {
				a.logger.Warn("update for unknown scenario", "id", op.ID)
				continue
			}
			patchScenario(sc, &op)
			for _, change := range op.Connections {
				if change.Direction == "" {
					continue
				}
				switch change.Op {
				case "add", "update":
					if change.Value != nil && *change.Value != "" {
						if sc.ConnectionsByDirection == nil {
							sc.ConnectionsByDirection = make(map[string]string)
						}
						sc.ConnectionsByDirection[change.Direction] = *change.Value
					} else {
						delete(sc.ConnectionsByDirection, change.Direction)
					}
				case "remove":
					delete(sc.ConnectionsByDirection, change.Direction)
				}
			}
			if op.ImagePath != nil && *op.ImagePath != "" {
				effects = append(effects, SideEffect{Target: TargetScenario, TargetID: sc.ID, ImagePath: *op.ImagePath})
			}

		case "remove":
			st.RemoveScenario(op.ID)

		default:
			a.logger.Warn("unknown scenario op", "op", op.Op, "id", op.ID)
		}
	}
	return effects
}

func patchScenario(sc *world.Scenario, op *ScenarioOp) {
	if op.Name != nil {
		sc.Name = *op.Name
	}
	if op.SummaryDescription != nil {
		sc.SummaryDescription = *op.SummaryDescription
	}
	if op.VisualDescription != nil {
		sc.VisualDescription = *op.VisualDescription
	}
	if op.NarrativeContext != nil {
		sc.NarrativeContext = *op.NarrativeContext
	}
	if op.IndoorOrOutdoor != nil {
		sc.IndoorOrOutdoor = *op.IndoorOrOutdoor
	}
	if op.Type != nil {
		sc.Type = *op.Type
	}
	if op.Zone != nil {
		sc.Zone = *op.Zone
	}
	if op.ImagePath != nil {
		sc.ImagePath = *op.ImagePath
	}
}

func (a *Applier) applyConnections(st *world.State, ops []ConnectionOp) {
	for _, op := range ops {
		if op.Op == "" || op.ID == "" {
			a.logger.Warn("skipping connection op without op or id", "op", op.Op, "id", op.ID)
			continue
		}

		switch op.Op {
		case "add":
			if strPtrEmpty(op.ScenarioAID) || strPtrEmpty(op.ScenarioBID) || strPtrEmpty(op.DirectionFromA) {
				a.logger.Warn("connection add missing endpoint or direction", "id", op.ID)
				continue
			}
			conn := &world.Connection{
				ID:             op.ID,
				ScenarioAID:    *op.ScenarioAID,
				ScenarioBID:    *op.ScenarioBID,
				DirectionFromA: *op.DirectionFromA,
				DirectionFromB: world.Opposite(*op.DirectionFromA),
			}
			patchConnection(conn, &op)
			st.UpsertConnection(conn)
			st.SetScenarioConnection(conn.ScenarioAID, conn.DirectionFromA, conn.ID)
			st.SetScenarioConnection(conn.ScenarioBID, conn.DirectionFromB, conn.ID)

		case "update":
			conn := st.Connection(op.ID)
			if conn == nil {
				a.logger.Warn("update for unknown connection", "id", op.ID)
				continue
			}
			repoint := false
			if op.ScenarioAID != nil && *op.ScenarioAID != conn.ScenarioAID {
				conn.ScenarioAID = *op.ScenarioAID
				repoint = true
			}
			if op.ScenarioBID != nil && *op.ScenarioBID != conn.ScenarioBID {
				conn.ScenarioBID = *op.ScenarioBID
				repoint = true
			}
			if op.DirectionFromA != nil && *op.DirectionFromA != conn.DirectionFromA {
				conn.DirectionFromA = *op.DirectionFromA
				conn.DirectionFromB = world.Opposite(*op.DirectionFromA)
				repoint = true
			}
			patchConnection(conn, &op)
			if repoint {
				st.RemoveConnectionFromDirections(conn.ID)
				st.SetScenarioConnection(conn.ScenarioAID, conn.DirectionFromA, conn.ID)
				st.SetScenarioConnection(conn.ScenarioBID, conn.DirectionFromB, conn.ID)
			}

		case "remove":
			st.RemoveConnection(op.ID)

		default:
			a.logger.Warn("unknown connection op", "op", op.Op, "id", op.ID)
		}
	}
}

func patchConnection(conn *world.Connection, op *ConnectionOp) {
	if op.Type != nil {
		conn.Type = *op.Type
	}
	if op.TravelDesc != nil {
		conn.TravelDesc = *op.TravelDesc
	}
	if op.ExitAppearance != nil {
		conn.ExitAppearance = *op.ExitAppearance
	}
	if op.TraversalConds != nil {
		conn.TraversalConds = op.TraversalConds
	}
	if op.Blocked != nil {
		conn.Blocked = *op.Blocked
	}
}

func (a *Applier) applyCharacters(st *world.State, changes *CharacterChanges) []SideEffect {
	var effects []SideEffect
	for _, op := range changes.Registry {
		if op.Op == "" || op.ID == "" {
			a.logger.Warn("skipping character op without op or id", "op", op.Op, "id", op.ID)
			continue
		}

		switch op.Op {
		case "add":
			c := &world.Character{ID: op.ID}
			patchCharacter(c, &op)
			st.UpsertCharacter(c)
			if op.PresentInScenario != nil {
				st.SetResidentScenario(c.ID, *op.PresentInScenario)
			}
			if c.ImagePath != "" {
				effects = append(effects, SideEffect{Target: TargetCharacter, TargetID: c.ID, ImagePath: c.ImagePath})
			}

		case "update":
			c := st.Character(op.ID)
			if c == nil {
				a.logger.Warn("update for unknown character", "id", op.ID)
				continue
			}
			// Field patch runs before the residency move: a single op that
			// renames a character and relocates it must land the rename even
			// if the destination scenario does not exist yet.
			patchCharacter(c, &op)
			if op.PresentInScenario != nil && *op.PresentInScenario != c.PresentInScenario {
				st.SetResidentScenario(c.ID, *op.PresentInScenario)
			}
			if op.ImagePath != nil && *op.ImagePath != "" {
				effects = append(effects, SideEffect{Target: TargetCharacter, TargetID: c.ID, ImagePath: *op.ImagePath})
			}

		case "remove":
			st.RemoveCharacter(op.ID)

		default:
			a.logger.Warn("unknown character op", "op", op.Op, "id", op.ID)
		}
	}

	if changes.PlayerCharacterID != "" {
		st.PlayerCharacterID = changes.PlayerCharacterID
	}
	return effects
}

func patchCharacter(c *world.Character, op *CharacterOp) {
	if op.Type != nil {
		c.Type = *op.Type
	}
	if op.ImagePath != nil {
		c.ImagePath = *op.ImagePath
	}
	if id := op.Identity; id != nil {
		if id.FullName != nil {
			c.Identity.FullName = *id.FullName
		}
		if id.Alias != nil {
			c.Identity.Alias = *id.Alias
		}
		if id.Age != nil {
			c.Identity.Age = *id.Age
		}
		if id.Gender != nil {
			c.Identity.Gender = *id.Gender
		}
		if id.Profession != nil {
			c.Identity.Profession = *id.Profession
		}
		if id.Species != nil {
			c.Identity.Species = *id.Species
		}
		if id.Alignment != nil {
			c.Identity.Alignment = *id.Alignment
		}
	}
	if ph := op.Physical; ph != nil {
		if ph.Appearance != nil {
			c.Physical.Appearance = *ph.Appearance
		}
		if ph.VisualPrompt != nil {
			c.Physical.VisualPrompt = *ph.VisualPrompt
		}
		if ph.DistinctiveFeatures != nil {
			c.Physical.DistinctiveFeatures = *ph.DistinctiveFeatures
		}
		if ph.ClothingStyle != nil {
			c.Physical.ClothingStyle = *ph.ClothingStyle
		}
		if ph.CharacteristicItems != nil {
			c.Physical.CharacteristicItems = *ph.CharacteristicItems
		}
	}
	if ps := op.Psychological; ps != nil {
		if ps.PersonalitySummary != nil {
			c.Psychological.PersonalitySummary = *ps.PersonalitySummary
		}
		if ps.PersonalityTags != nil {
			c.Psychological.PersonalityTags = ps.PersonalityTags
		}
		if ps.Motivations != nil {
			c.Psychological.Motivations = ps.Motivations
		}
		if ps.Values != nil {
			c.Psychological.Values = ps.Values
		}
		if ps.FearsAndWeaknesses != nil {
			c.Psychological.FearsAndWeaknesses = ps.FearsAndWeaknesses
		}
		if ps.CommunicationStyle != nil {
			c.Psychological.CommunicationStyle = *ps.CommunicationStyle
		}
		if ps.Backstory != nil {
			c.Psychological.Backstory = *ps.Backstory
		}
		if ps.Quirks != nil {
			c.Psychological.Quirks = *ps.Quirks
		}
	}
	if k := op.Knowledge; k != nil {
		if k.BackgroundKnowledge != nil {
			c.Knowledge.BackgroundKnowledge = *k.BackgroundKnowledge
		}
		if k.AcquiredKnowledge != nil {
			c.Knowledge.AcquiredKnowledge = *k.AcquiredKnowledge
		}
	}
	if d := op.Dynamic; d != nil {
		if d.CurrentEmotion != nil {
			c.Dynamic.CurrentEmotion = *d.CurrentEmotion
		}
		if d.ImmediateGoal != nil {
			c.Dynamic.ImmediateGoal = *d.ImmediateGoal
		}
	}
	if n := op.Narrative; n != nil {
		if n.NarrativeRole != nil {
			c.Narrative.NarrativeRole = *n.NarrativeRole
		}
		if n.CurrentImportance != nil {
			c.Narrative.CurrentImportance = *n.CurrentImportance
		}
		if n.NarrativePurposes != nil {
			c.Narrative.NarrativePurposes = n.NarrativePurposes
		}
	}
}

func (a *Applier) applyOptions(st *world.State, deltas map[string][]OptionOp) {
	characterIDs := make([]string, 0, len(deltas))
	for id := range deltas {
		characterIDs = append(characterIDs, id)
	}
	sort.Strings(characterIDs)

	for _, characterID := range characterIDs {
		for _, op := range deltas[characterID] {
			if op.Op == "" || op.ConditionID == "" {
				a.logger.Warn("skipping invalid contextual option op",
					"character_id", characterID, "op", op.Op, "condition_id", op.ConditionID)
				continue
			}

			switch op.Op {
			case "add":
				opt := &world.ContextualOption{ConditionID: op.ConditionID}
				patchOption(opt, &op)
				st.UpsertContextualOption(characterID, opt)
			case "update":
				opt := st.ContextualOption(characterID, op.ConditionID)
				if opt == nil {
					a.logger.Warn("update for unknown contextual option",
						"character_id", characterID, "condition_id", op.ConditionID)
					continue
				}
				patchOption(opt, &op)
			case "remove":
				st.RemoveContextualOption(characterID, op.ConditionID)
			default:
				a.logger.Warn("unknown contextual option op",
					"character_id", characterID, "op", op.Op, "condition_id", op.ConditionID)
			}
		}
	}
}

func patchOption(opt *world.ContextualOption, op *OptionOp) {
	if op.EventID != nil {
		opt.EventID = *op.EventID
	}
	if op.Title != nil {
		opt.Title = *op.Title
	}
	if op.Description != nil {
		opt.Description = *op.Description
	}
	if op.MenuLabel != nil {
		opt.MenuLabel = *op.MenuLabel
	}
	if op.Repeatable != nil {
		opt.Repeatable = *op.Repeatable
	}
}

func strPtrEmpty(s *string) bool {
	return s == nil || *s == ""
}
