package optimizer

// Messages shown in place of model output.
const (
	EmptyInputMessage = "Please enter a question."
	Placeholder       = "---"
	ParseErrorNotice  = "--- (Parsing Error: Could not separate prompt and response. The LLM output might not follow the required format.)"
	connectErrorFmt   = "ERROR: Failed to connect to OpenRouter API. Check key/internet. Details: %v"
)

// MetaInstruction is appended to the stored system message. It makes the
// model return the rewritten prompt, a blank line, then the answer.
const MetaInstruction = "TASK: First, rewrite the following VAGUE_INPUT into a highly specific and professional instruction (the 'OPTIMIZED PROMPT'). " +
	"The optimized prompt MUST include a clear Persona, the desired Output Format, and clear Constraints. " +
	"Second, provide the final answer based on the OPTIMIZED PROMPT. " +
	"Format your output strictly as: \n\n<OPTIMIZED_PROMPT>\n\n<FINAL_RESPONSE>"

const userInputPrefix = "VAGUE_INPUT: "

// separator splits the optimized prompt from the final response.
const separator = "\n\n"
