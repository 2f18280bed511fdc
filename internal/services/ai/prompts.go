package ai

import "fmt"

// Feature identifies one analysis the user can request
type Feature string

const (
	FeatureFindBugs       Feature = "Find & Fix Bugs"
	FeatureExplain        Feature = "Explain Code"
	FeatureOptimize       Feature = "Optimize Code"
	FeatureDetectLanguage Feature = "Detect & Adapt Language"
	FeatureRefactor       Feature = "Refactor Code"
	FeatureHandwritten    Feature = "Convert Handwritten"

	// FeatureComplete is the label recorded when no feature was selected
	// and the combined analysis ran instead.
	FeatureComplete Feature = "Complete Analysis"
)

// AllFeatures lists the selectable analyses in display order
var AllFeatures = []Feature{
	FeatureFindBugs,
	FeatureExplain,
	FeatureOptimize,
	FeatureDetectLanguage,
	FeatureRefactor,
	FeatureHandwritten,
}

// ParseFeature maps a form value to a known feature
func ParseFeature(s string) (Feature, bool) {
	for _, f := range AllFeatures {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// NeedsImage reports whether the feature operates on an uploaded image
// instead of typed code.
func (f Feature) NeedsImage() bool {
	return f == FeatureHandwritten
}

// Prompt builds the analysis prompt for a feature over the given code
func (f Feature) Prompt(code string) string {
	switch f {
	case FeatureFindBugs:
		return fmt.Sprintf(`*Finding & Fixing Bugs*

Analyze the following code for errors and potential bugs. Identify syntax issues, logical errors, and performance inefficiencies.
Code: %s

Output Format:
- *Issue:* Describe the problem
- *Errors Found:* List of errors with explanations
- *Suggested Fix:* Provide corrected code
- *Explanation:* Explain why the fix works
`, code)

	case FeatureExplain:
		return fmt.Sprintf(`*Code Explanation*

Explain the following code in simple terms:
%s

Output Format:
- *Overview:* What the code does
- *Step-by-Step Breakdown:* Explain each important line
- *Key Concepts Used:* List algorithms, data structures, and logic patterns
`, code)

	case FeatureOptimize:
		return fmt.Sprintf(`*Code Optimization*

Optimize the following code:
%s

Output Format:
- *Current Issues:* Describe inefficiencies
- *Optimized Code:*
- *Explanation of Improvements:*
- *Performance Impact:*
`, code)

	case FeatureDetectLanguage:
		return fmt.Sprintf(`*Language Detection & Adaptation*

Detect the programming language and provide equivalent implementations java,c,c++,c#,java script,python,go,rust,typescript,php,swift,kotlin:
%s

Output Format:
- *Detected Language:*
- *Equivalent Implementations in Other Languages:*
`, code)

	case FeatureRefactor:
		return fmt.Sprintf(`*Code Refactoring*

Refactor the following code:
%s

Output Format:
- *Refactored Code:*
- *Key Improvements:*
- *Enhanced Readability Features:*
`, code)

	case FeatureHandwritten:
		return "Analyze this handwritten code image and convert it to digital code. Provide explanation and fix any errors."

	default:
		return completePrompt(code)
	}
}

// completePrompt is the combined analysis used when no feature is selected
func completePrompt(code string) string {
	return fmt.Sprintf(`Make the heading as *Finding & Fixing Bugs*
Analyze the following code for errors and potential bugs. Identify syntax issues, logical errors, and performance inefficiencies.
Provide a list of errors with explanations and suggest fixes. Give headings in bold text. If there are no errors, mention that there are no errors.
Code: %s

Make the heading as *Explanation of Code*
Explain the following code in simple terms. Break it down step by step, describing what each function, loop, and condition does.

Make the heading as *Optimizing Code*
Optimize the following code to improve time and space efficiency.

Make the heading as *Detect & Adapt Language*
Detect the programming language and provide equivalent implementations in other languages.

Make the heading as *Refactoring the Code*
Refactor the following code to enhance readability, maintainability, and structure.
`, code)
}
