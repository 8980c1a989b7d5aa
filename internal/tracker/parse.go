package tracker

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/forgewright/planloom/internal/model"
	"github.com/forgewright/planloom/internal/perr"
)

// Wire format (an Open Question spec.md leaves to the implementer, §9): one
// tab-separated record per line, blank lines ignored.
//
//	plan record:    <path>\t<priority>
//	feature record: <name>\t<phase>\t<status>\t<priority>

func scanLines(output string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func parsePlanLine(line string) (model.PlanInfo, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 2 {
		return model.PlanInfo{}, perr.NewSubprocessError(perr.SubprocessParseError, 0, line, nil)
	}
	priority, err := strconv.Atoi(fields[1])
	if err != nil {
		return model.PlanInfo{}, perr.NewSubprocessError(perr.SubprocessParseError, 0, line, err)
	}
	return model.PlanInfo{Path: fields[0], Priority: priority}, nil
}

func parsePlanLines(output string) ([]model.PlanInfo, error) {
	var plans []model.PlanInfo
	for _, line := range scanLines(output) {
		p, err := parsePlanLine(line)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func parseFeatureLine(line string) (model.FeatureInfo, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 4 {
		return model.FeatureInfo{}, perr.NewSubprocessError(perr.SubprocessParseError, 0, line, nil)
	}
	priority, err := strconv.Atoi(fields[3])
	if err != nil {
		return model.FeatureInfo{}, perr.NewSubprocessError(perr.SubprocessParseError, 0, line, err)
	}
	return model.FeatureInfo{
		Name:     fields[0],
		Phase:    fields[1],
		Status:   model.FeatureStatus(fields[2]),
		Priority: priority,
	}, nil
}

func parseFeatureLines(output string) ([]model.FeatureInfo, error) {
	var features []model.FeatureInfo
	for _, line := range scanLines(output) {
		f, err := parseFeatureLine(line)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}
