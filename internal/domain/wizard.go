package domain

// WizardStep describes one screen of the data-entry flow. The flow itself
// (current index, back/next) belongs to the client; the service only
// publishes the ordered catalogue.
type WizardStep struct {
	Index    int     `json:"index"`
	Title    string  `json:"title"`
	Section  string  `json:"section"`
	Progress float64 `json:"progress"`
}

var wizardTitles = []struct {
	title   string
	section string
}{
	{"Cash & Bank", "cash"},
	{"Gold & Silver", "preciousMetals"},
	{"Investments", "investments"},
	{"Properties", "property"},
	{"Business Assets", "business"},
	{"Agriculture", "agriculture"},
	{"Liabilities", "liabilities"},
	{"Summary", "summary"},
}

// WizardSteps returns the steps in order with their progress percentage.
func WizardSteps() []WizardStep {
	steps := make([]WizardStep, len(wizardTitles))
	for i, s := range wizardTitles {
		steps[i] = WizardStep{
			Index:    i,
			Title:    s.title,
			Section:  s.section,
			Progress: float64(i+1) / float64(len(wizardTitles)) * 100,
		}
	}
	return steps
}

// NextStep advances the index, stopping at the last step.
func NextStep(current int) int {
	if current < 0 {
		return 0
	}
	if current >= len(wizardTitles)-1 {
		return len(wizardTitles) - 1
	}
	return current + 1
}

// PrevStep moves the index back, stopping at the first step.
func PrevStep(current int) int {
	if current <= 0 {
		return 0
	}
	if current > len(wizardTitles)-1 {
		return len(wizardTitles) - 1
	}
	return current - 1
}
