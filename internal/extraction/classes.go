package extraction

// Entity classes the clinical extraction prompt asks for, grouped by concern.
const (
	ClassMedication       = "medication"
	ClassDosage           = "dosage"
	ClassRoute            = "route"
	ClassFrequency        = "frequency"
	ClassDuration         = "duration"
	ClassIndication       = "indication"
	ClassMedicationStatus = "medication_status"

	ClassDiagnosis       = "diagnosis"
	ClassDiagnosisICD    = "diagnosis_icd"
	ClassDiagnosisStatus = "diagnosis_status"
	ClassDiagnosisOnset  = "diagnosis_onset"

	ClassProcedure           = "procedure"
	ClassProcedureDate       = "procedure_date"
	ClassProcedureLaterality = "procedure_laterality"
	ClassProcedureFindings   = "procedure_findings"

	ClassLabTest           = "lab_test"
	ClassLabValue          = "lab_value"
	ClassLabUnit           = "lab_unit"
	ClassLabReference      = "lab_reference"
	ClassLabInterpretation = "lab_interpretation"

	ClassSymptomSign         = "symptom_sign"
	ClassAdverseEventAllergy = "adverse_event_allergy"
	ClassAllergySeverity     = "allergy_severity"

	ClassDemographicAge = "demographic_age"
	ClassDemographicSex = "demographic_sex"
	ClassDemographicDOB = "demographic_dob"
)

var knownClasses = map[string]struct{}{
	ClassMedication: {}, ClassDosage: {}, ClassRoute: {}, ClassFrequency: {},
	ClassDuration: {}, ClassIndication: {}, ClassMedicationStatus: {},
	ClassDiagnosis: {}, ClassDiagnosisICD: {}, ClassDiagnosisStatus: {}, ClassDiagnosisOnset: {},
	ClassProcedure: {}, ClassProcedureDate: {}, ClassProcedureLaterality: {}, ClassProcedureFindings: {},
	ClassLabTest: {}, ClassLabValue: {}, ClassLabUnit: {}, ClassLabReference: {}, ClassLabInterpretation: {},
	ClassSymptomSign: {}, ClassAdverseEventAllergy: {}, ClassAllergySeverity: {},
	ClassDemographicAge: {}, ClassDemographicSex: {}, ClassDemographicDOB: {},
}

// KnownClass reports whether class is part of the clinical schema.
// Unknown classes are still scored; the check only feeds diagnostics.
func KnownClass(class string) bool {
	_, ok := knownClasses[class]
	return ok
}
