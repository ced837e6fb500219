package world

// Connection is an edge between two scenarios. DirectionFromB is always
// derived as the opposite of DirectionFromA, never sent by the server.
type Connection struct {
	ID             string   `json:"id"`
	ScenarioAID    string   `json:"scenario_a_id"`
	ScenarioBID    string   `json:"scenario_b_id"`
	DirectionFromA string   `json:"direction_from_a"`
	DirectionFromB string   `json:"direction_from_b"`
	Type           string   `json:"connection_type,omitempty"`
	TravelDesc     string   `json:"travel_description,omitempty"`
	ExitAppearance string   `json:"exit_appearance_description,omitempty"`
	TraversalConds []string `json:"traversal_conditions,omitempty"`
	Blocked        bool     `json:"is_blocked,omitempty"`
}

// OtherEndpoint returns the scenario on the far side of the connection
// from the given scenario, or "" if the scenario is not an endpoint.
func (c *Connection) OtherEndpoint(scenarioID string) string {
	switch scenarioID {
	case c.ScenarioAID:
		return c.ScenarioBID
	case c.ScenarioBID:
		return c.ScenarioAID
	default:
		return ""
	}
}
