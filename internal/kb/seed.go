package kb

import "github.com/hyperjump/rinsho/internal/models"

// Document type conventions used across the knowledge base.
const (
	TypeDiagnosticCriteria = "dsm5_criteria"
	TypeTreatmentGuideline = "treatment_guideline"
	TypeAssessmentTool     = "assessment_tool"
)

// DiagnosticCriteria returns the built-in DSM-5-TR diagnostic criteria
// documents. The metadata "category" carries the disorder name and drives
// category-filtered search.
func DiagnosticCriteria() []models.Document {
	return []models.Document{
		{
			Text: "Major Depressive Disorder requires 5 or more symptoms during a 2-week period, with at least one being depressed mood or loss of interest. Symptoms include: depressed mood, diminished interest/pleasure, significant weight loss/gain, insomnia/hypersomnia, psychomotor agitation/retardation, fatigue, feelings of worthlessness, diminished concentration, recurrent thoughts of death.",
			Metadata: map[string]interface{}{
				"type":       TypeDiagnosticCriteria,
				"category":   "Major Depressive Disorder",
				"code":       "296.2x",
				"icd11_code": "6A70",
				"chapter":    "Depressive Disorders",
				"source":     "DSM-5-TR",
			},
		},
		{
			Text: "Generalized Anxiety Disorder involves excessive anxiety and worry about multiple events for at least 6 months. The worry is difficult to control and includes symptoms like restlessness, fatigue, concentration difficulties, irritability, muscle tension, and sleep disturbance.",
			Metadata: map[string]interface{}{
				"type":       TypeDiagnosticCriteria,
				"category":   "Generalized Anxiety Disorder",
				"code":       "300.02",
				"icd11_code": "6B00",
				"chapter":    "Anxiety Disorders",
				"source":     "DSM-5-TR",
			},
		},
		{
			Text: "Post-Traumatic Stress Disorder requires exposure to actual/threatened death, serious injury, or sexual violence. Symptoms include intrusive memories, avoidance of trauma-related stimuli, negative cognitions/mood alterations, and arousal/reactivity changes lasting more than 1 month.",
			Metadata: map[string]interface{}{
				"type":       TypeDiagnosticCriteria,
				"category":   "PTSD",
				"code":       "309.81",
				"icd11_code": "6B40",
				"chapter":    "Trauma and Stressor-Related Disorders",
				"source":     "DSM-5-TR",
			},
		},
		{
			Text: "Bipolar I Disorder requires at least one manic episode. Manic episodes involve elevated/irritable mood for at least 1 week with symptoms like grandiosity, decreased sleep need, talkativeness, racing thoughts, distractibility, increased activity, and risky behavior.",
			Metadata: map[string]interface{}{
				"type":       TypeDiagnosticCriteria,
				"category":   "Bipolar I Disorder",
				"code":       "296.4x",
				"icd11_code": "6A60",
				"chapter":    "Bipolar and Related Disorders",
				"source":     "DSM-5-TR",
			},
		},
		{
			Text: "ADHD requires 6+ symptoms of inattention and/or hyperactivity-impulsivity for at least 6 months. Inattention symptoms include difficulty sustaining attention, careless mistakes, not listening, difficulty organizing, avoiding mental effort, losing things, distractibility, forgetfulness.",
			Metadata: map[string]interface{}{
				"type":       TypeDiagnosticCriteria,
				"category":   "ADHD",
				"code":       "314.0x",
				"icd11_code": "6A05",
				"chapter":    "Neurodevelopmental Disorders",
				"source":     "DSM-5-TR",
			},
		},
		{
			Text: "Obsessive-Compulsive Disorder involves obsessions (recurrent intrusive thoughts) and/or compulsions (repetitive behaviors/mental acts). The obsessions/compulsions are time-consuming, cause distress, or significantly impair functioning.",
			Metadata: map[string]interface{}{
				"type":       TypeDiagnosticCriteria,
				"category":   "OCD",
				"code":       "300.3",
				"icd11_code": "6B20",
				"chapter":    "Obsessive-Compulsive and Related Disorders",
				"source":     "DSM-5-TR",
			},
		},
	}
}

// TreatmentGuidelines returns the built-in evidence-based treatment
// guideline documents.
func TreatmentGuidelines() []models.Document {
	return []models.Document{
		{
			Text: "Cognitive Behavioral Therapy (CBT) for Major Depression shows strong evidence for effectiveness. CBT focuses on identifying and changing negative thought patterns and behaviors. Treatment typically lasts 16-20 sessions and includes behavioral activation, cognitive restructuring, and relapse prevention.",
			Metadata: map[string]interface{}{
				"type":           TypeTreatmentGuideline,
				"category":       "Major Depressive Disorder",
				"treatment":      "Cognitive Behavioral Therapy",
				"evidence_level": "Level 1 - Strong",
				"duration":       "16-20 sessions",
				"source":         "APA Clinical Practice Guidelines",
			},
		},
		{
			Text: "SSRI medications are first-line pharmacological treatment for Major Depression. Effective SSRIs include sertraline, fluoxetine, and escitalopram. Treatment response typically occurs within 4-6 weeks, with full benefits at 8-12 weeks. Side effects may include nausea, headache, and sexual dysfunction.",
			Metadata: map[string]interface{}{
				"type":           TypeTreatmentGuideline,
				"category":       "Major Depressive Disorder",
				"treatment":      "SSRI Medication",
				"evidence_level": "Level 1 - Strong",
				"timeline":       "4-6 weeks for response, 8-12 weeks for full benefit",
				"source":         "APA Clinical Practice Guidelines",
			},
		},
		{
			Text: "CBT for Generalized Anxiety Disorder involves worry exposure, relaxation training, and cognitive restructuring. Treatment focuses on challenging catastrophic thinking, developing coping strategies, and gradual exposure to worry triggers. Duration is typically 12-16 sessions.",
			Metadata: map[string]interface{}{
				"type":           TypeTreatmentGuideline,
				"category":       "Generalized Anxiety Disorder",
				"treatment":      "Cognitive Behavioral Therapy",
				"evidence_level": "Level 1 - Strong",
				"duration":       "12-16 sessions",
				"source":         "APA Clinical Practice Guidelines",
			},
		},
		{
			Text: "Trauma-Focused CBT and EMDR are gold-standard treatments for PTSD. TF-CBT includes exposure therapy, cognitive processing, and trauma narrative work. EMDR involves bilateral stimulation while processing traumatic memories. Both show strong evidence for PTSD symptom reduction.",
			Metadata: map[string]interface{}{
				"type":           TypeTreatmentGuideline,
				"category":       "PTSD",
				"treatment":      "Trauma-Focused CBT and EMDR",
				"evidence_level": "Level 1 - Strong",
				"source":         "APA Clinical Practice Guidelines",
			},
		},
		{
			Text: "Dialectical Behavior Therapy (DBT) is effective for emotion regulation and interpersonal difficulties. DBT includes mindfulness, distress tolerance, emotion regulation, and interpersonal effectiveness skills. Treatment involves individual therapy and skills groups.",
			Metadata: map[string]interface{}{
				"type":           TypeTreatmentGuideline,
				"category":       "Borderline Personality Disorder",
				"treatment":      "Dialectical Behavior Therapy",
				"evidence_level": "Level 1 - Strong",
				"source":         "APA Clinical Practice Guidelines",
			},
		},
	}
}

// AssessmentTools returns the built-in clinical assessment instrument
// documents.
func AssessmentTools() []models.Document {
	return []models.Document{
		{
			Text: "PHQ-9 (Patient Health Questionnaire-9) is a reliable screening tool for depression severity. Scores: 1-4 minimal, 5-9 mild, 10-14 moderate, 15-19 moderately severe, 20-27 severe depression. Question 9 assesses suicidal ideation and requires immediate attention if endorsed.",
			Metadata: map[string]interface{}{
				"type":      TypeAssessmentTool,
				"category":  "Major Depressive Disorder",
				"tool_name": "PHQ-9",
				"purpose":   "Depression screening and severity",
				"source":    "Clinical Assessment",
			},
		},
		{
			Text: "GAD-7 (Generalized Anxiety Disorder-7) screens for anxiety severity. Scores: 0-4 minimal, 5-9 mild, 10-14 moderate, 15-21 severe anxiety. Cut-point of 10 or greater represents reasonable cut-point for identifying GAD.",
			Metadata: map[string]interface{}{
				"type":      TypeAssessmentTool,
				"category":  "Generalized Anxiety Disorder",
				"tool_name": "GAD-7",
				"purpose":   "Anxiety screening and severity",
				"source":    "Clinical Assessment",
			},
		},
		{
			Text: "PCL-5 (PTSD Checklist for DSM-5) is a 20-item self-report measure of PTSD symptoms over the past month. Scores range 0-80; a cut-point of 31-33 suggests probable PTSD. Items map onto the four DSM-5 symptom clusters.",
			Metadata: map[string]interface{}{
				"type":      TypeAssessmentTool,
				"category":  "PTSD",
				"tool_name": "PCL-5",
				"purpose":   "PTSD symptom screening",
				"source":    "Clinical Assessment",
			},
		},
	}
}

// SeedDocuments returns the full built-in corpus: criteria, then treatment
// guidelines, then assessment tools.
func SeedDocuments() []models.Document {
	var docs []models.Document
	docs = append(docs, DiagnosticCriteria()...)
	docs = append(docs, TreatmentGuidelines()...)
	docs = append(docs, AssessmentTools()...)
	return docs
}
