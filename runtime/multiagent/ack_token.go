package multiagent

import (
	"encoding/json"

	"github.com/agentrtkit/codexrt/runtime/team"
)

func parseAckToken(raw string) (team.AckToken, error) {
	var token team.AckToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return team.AckToken{}, err
	}
	return token, nil
}
