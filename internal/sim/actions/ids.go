package actions

import "fmt"

// ID names one action. The set is closed; None marks "no action yet".
type ID uint8

const (
	None ID = iota

	Veneration
	WasteNot
	WasteNot2
	GreatStrides
	Innovation
	FinalAppraisal
	Manipulation
	MastersMend
	ImmaculateMend
	Observe
	TricksOfTheTrade
	CarefulObservation
	HeartAndSoul
	TrainedPerfection
	DelicateSynthesis

	BasicSynthesis
	RapidSynthesis
	MuscleMemory
	CarefulSynthesis
	FocusedSynthesis
	Groundwork
	IntensiveSynthesis
	PrudentSynthesis

	BasicTouch
	HastyTouch
	StandardTouch
	AdvancedTouch
	ByregotsBlessing
	PreciseTouch
	PrudentTouch
	FocusedTouch
	Reflect
	PreparatoryTouch
	TrainedEye
	TrainedFinesse
	DaringTouch
	RefinedTouch

	NumActions
)

// Wire names are snake_case and stable; they appear in logs and messages.
var wireNames = [NumActions]string{
	None:               "none",
	Veneration:         "veneration",
	WasteNot:           "waste_not",
	WasteNot2:          "waste_not_ii",
	GreatStrides:       "great_strides",
	Innovation:         "innovation",
	FinalAppraisal:     "final_appraisal",
	Manipulation:       "manipulation",
	MastersMend:        "masters_mend",
	ImmaculateMend:     "immaculate_mend",
	Observe:            "observe",
	TricksOfTheTrade:   "tricks_of_the_trade",
	CarefulObservation: "careful_observation",
	HeartAndSoul:       "heart_and_soul",
	TrainedPerfection:  "trained_perfection",
	DelicateSynthesis:  "delicate_synthesis",
	BasicSynthesis:     "basic_synthesis",
	RapidSynthesis:     "rapid_synthesis",
	MuscleMemory:       "muscle_memory",
	CarefulSynthesis:   "careful_synthesis",
	FocusedSynthesis:   "focused_synthesis",
	Groundwork:         "groundwork",
	IntensiveSynthesis: "intensive_synthesis",
	PrudentSynthesis:   "prudent_synthesis",
	BasicTouch:         "basic_touch",
	HastyTouch:         "hasty_touch",
	StandardTouch:      "standard_touch",
	AdvancedTouch:      "advanced_touch",
	ByregotsBlessing:   "byregots_blessing",
	PreciseTouch:       "precise_touch",
	PrudentTouch:       "prudent_touch",
	FocusedTouch:       "focused_touch",
	Reflect:            "reflect",
	PreparatoryTouch:   "preparatory_touch",
	TrainedEye:         "trained_eye",
	TrainedFinesse:     "trained_finesse",
	DaringTouch:        "daring_touch",
	RefinedTouch:       "refined_touch",
}

func (id ID) String() string {
	if id < NumActions {
		return wireNames[id]
	}
	return fmt.Sprintf("ID(%d)", uint8(id))
}

func (id ID) Valid() bool { return id > None && id < NumActions }

// All lists every real action in ID order.
func All() []ID {
	out := make([]ID, 0, NumActions-1)
	for id := None + 1; id < NumActions; id++ {
		out = append(out, id)
	}
	return out
}
