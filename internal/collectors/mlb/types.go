package mlb

type scheduleResponse struct {
	TotalGames int          `json:"totalGames"`
	Dates      []dateBucket `json:"dates"`
}

type dateBucket struct {
	Date  string         `json:"date"`
	Games []gameResponse `json:"games"`
}

type gameResponse struct {
	GamePk       int            `json:"gamePk"`
	GameDate     string         `json:"gameDate"`
	OfficialDate string         `json:"officialDate"`
	Status       statusResponse `json:"status"`
	Teams        struct {
		Home sideResponse `json:"home"`
		Away sideResponse `json:"away"`
	} `json:"teams"`
	Linescore *linescoreResponse `json:"linescore,omitempty"`
}

type statusResponse struct {
	AbstractGameState string `json:"abstractGameState"`
	DetailedState     string `json:"detailedState"`
	CodedGameState    string `json:"codedGameState"`
}

type sideResponse struct {
	Score int          `json:"score"`
	Team  teamResponse `json:"team"`
}

type teamResponse struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type linescoreResponse struct {
	CurrentInning    int    `json:"currentInning"`
	InningState      string `json:"inningState"`
	ScheduledInnings int    `json:"scheduledInnings"`
}
