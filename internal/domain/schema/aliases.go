package schema

// Field is a canonical column name.
type Field string

// Canonical fields. Legacy exports already use most of these names.
const (
	FieldHitID        Field = "hitid"
	FieldHitTypeID    Field = "hittypeid"
	FieldTitle        Field = "title"
	FieldAssignmentID Field = "assignmentid"
	FieldWorkerID     Field = "workerid"
	FieldAcceptTime   Field = "assignmentaccepttime"
	FieldSubmitTime   Field = "assignmentsubmittime"
	FieldCreationTime Field = "creationtime"

	FieldExperiment   Field = "Experiment"
	FieldExperimenter Field = "Experimenter"
	FieldList         Field = "list"
	FieldBrowser      Field = "browser"

	FieldSex       Field = "Sex"
	FieldEthnicity Field = "Ethnicity"
	FieldAge       Field = "Age"
	FieldRace      Field = "race"
	FieldRaceOther Field = "raceother"

	FieldRaceAmericanIndian Field = "race.amerind"
	FieldRaceAsian          Field = "race.asian"
	FieldRaceBlack          Field = "race.black"
	FieldRaceOtherFlag      Field = "race.other"
	FieldRacePacific        Field = "race.pacif"
	FieldRaceUnknown        Field = "race.unknown"
	FieldRaceWhite          Field = "race.white"
)

// indicatorFields follows model.IndicatorKeys.
var indicatorFields = [...]Field{
	FieldRaceAmericanIndian,
	FieldRaceAsian,
	FieldRaceBlack,
	FieldRaceOtherFlag,
	FieldRacePacific,
	FieldRaceUnknown,
	FieldRaceWhite,
}

// demographicsColumn is present only in files exported after the
// demographic questionnaire was added.
const demographicsColumn = "Answer.rsrb.ethnicity"

type alias struct {
	column string
	field  Field
}

// legacyColumns are the assignment columns of the lowercase export format.
var legacyColumns = []alias{
	{"hitid", FieldHitID},
	{"hittypeid", FieldHitTypeID},
	{"title", FieldTitle},
	{"creationtime", FieldCreationTime},
	{"assignmentid", FieldAssignmentID},
	{"workerid", FieldWorkerID},
	{"assignmentaccepttime", FieldAcceptTime},
	{"assignmentsubmittime", FieldSubmitTime},
}

// currentColumns are the assignment columns of the CamelCase export format.
var currentColumns = []alias{
	{"HITId", FieldHitID},
	{"HitId", FieldHitID},
	{"HITTypeId", FieldHitTypeID},
	{"Title", FieldTitle},
	{"HitTitle", FieldTitle},
	{"CreationTime", FieldCreationTime},
	{"AssignmentId", FieldAssignmentID},
	{"WorkerId", FieldWorkerID},
	{"AcceptTime", FieldAcceptTime},
	{"SubmitTime", FieldSubmitTime},
}

// answerColumns come from the HIT's own form and are named the same way in
// both formats. Order matters where several aliases feed one field: the
// first non-empty value wins, and browser values are joined in this order.
var answerColumns = []alias{
	{"Answer.experiment", FieldExperiment},
	{"Answer.Experiment", FieldExperiment},
	{"Experiment", FieldExperiment},
	{"Experimenter", FieldExperimenter},
	{"Answer.list", FieldList},
	{"Answer.List", FieldList},
	{"Answer.browser", FieldBrowser},
	{"Answer.browserid", FieldBrowser},
	{"Answer.Browser", FieldBrowser},
	{"Answer.userAgent", FieldBrowser},
	{"Answer.rsrb.raceother", FieldRaceOther},
	{demographicsColumn, FieldEthnicity},
	{"Answer.rsrb.sex", FieldSex},
	{"Answer.rsrb.age", FieldAge},
	{"Answer.rsrb.race", FieldRace},
	{"Answer.rsrb.race.amerind", FieldRaceAmericanIndian},
	{"Answer.rsrb.race.asian", FieldRaceAsian},
	{"Answer.rsrb.race.black", FieldRaceBlack},
	{"Answer.rsrb.race.other", FieldRaceOtherFlag},
	{"Answer.rsrb.race.pacif", FieldRacePacific},
	{"Answer.rsrb.race.unknown", FieldRaceUnknown},
	{"Answer.rsrb.race.white", FieldRaceWhite},
}

// AliasTable returns every recognized raw column name mapped to its
// canonical field. The returned map is a copy.
func AliasTable() map[string]Field {
	out := make(map[string]Field, len(legacyColumns)+len(currentColumns)+len(answerColumns))
	for _, group := range [][]alias{legacyColumns, currentColumns, answerColumns} {
		for _, a := range group {
			out[a.column] = a.field
		}
	}
	return out
}

// missingTokens are cell values a spreadsheet export writes for an empty
// answer. They are read as missing, like an empty cell.
var missingTokens = map[string]struct{}{
	"":         {},
	"NA":       {},
	"N/A":      {},
	"n/a":      {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"NaN":      {},
	"nan":      {},
	"-NaN":     {},
	"-nan":     {},
	"NULL":     {},
	"null":     {},
	"None":     {},
	"<NA>":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
}

// IsMissing reports whether a raw cell holds no answer.
func IsMissing(v string) bool {
	_, ok := missingTokens[v]
	return ok
}
