package execagent

import (
	"fmt"
	"os"

	"github.com/forgewright/planloom/internal/perr"
)

const instructionsTemplate = `You are implementing one phase of a prepared plan.

Phase: %s

Plan contents:
%s

Implement this phase completely. Make the smallest set of changes that
satisfies the plan, run any tests the project already has, and leave the
working tree in a state ready for review.`

// BuildPrompt reads planPath and renders it together with phase into the
// fixed instructions template. A missing plan file is reported as
// perr.InputFileNotFound; an empty file is allowed (spec.md §4.9's "empty
// file is allowed" rule) and still produces a prompt naming the phase.
func BuildPrompt(planPath, phase string) (string, error) {
	data, err := os.ReadFile(planPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", perr.NewInputError(perr.InputFileNotFound, err)
		}
		return "", err
	}
	return fmt.Sprintf(instructionsTemplate, phase, string(data)), nil
}
