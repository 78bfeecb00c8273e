package espn

type scoreboardResponse struct {
	Events []eventResponse `json:"events"`
}

type eventResponse struct {
	ID           string                `json:"id"`
	Date         string                `json:"date"`
	Status       statusResponse        `json:"status"`
	Competitions []competitionResponse `json:"competitions"`
}

type statusResponse struct {
	Period       int              `json:"period"`
	DisplayClock string           `json:"displayClock"`
	Type         statusTypeResult `json:"type"`
}

type statusTypeResult struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Completed   bool   `json:"completed"`
	Description string `json:"description"`
}

type competitionResponse struct {
	Date        string               `json:"date"`
	Competitors []competitorResponse `json:"competitors"`
}

type competitorResponse struct {
	HomeAway string       `json:"homeAway"`
	Score    string       `json:"score"`
	Team     teamResponse `json:"team"`
}

type teamResponse struct {
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}
