package ai

// Prompt bodies for the primary (Vertex AI) backend. The header with the
// per-request values is assembled in BuildPrompt.

const scheduleInstructions = `
Based on the plant species, provide optimal care intervals. Consider:
- Plant type (succulent, tropical, desert, etc.)
- Typical care requirements
- Seasonal adjustments

Return JSON with this exact format:
{
  "watering_interval_days": number,
  "fertilizing_interval_days": number,
  "recommendations": "string with care advice"
}`

const statusInstructions = `
Calculate the new happiness level:
- +1 point for completing a watering task
- +3 points for completing a fertilizing task
- -1 point for missing a watering task
- -3 points for missing a fertilizing task

Provide a health status based on happiness:
- 75-100: "healthy"
- 50-74: "needs_attention"
- 25-49: "neglected"
- 0-24: "emergency"

Return JSON with this exact format:
{
  "happiness": number (0-100),
  "healthStatus": "healthy" | "needs_attention" | "neglected" | "emergency",
  "recommendations": "string with care advice"
}`

const photoInstructions = `
Analyze the plant's visual health indicators:
- Leaf color and condition
- Overall plant appearance
- Signs of stress or disease
- Growth stage

Set a happiness baseline (0-100) based on visual health:
- Healthy, vibrant plant: 75-85
- Good condition with minor issues: 60-75
- Some visible problems: 40-60
- Poor health: 20-40
- Critical condition: 0-20

Return JSON with this exact format:
{
  "happiness": number (0-100),
  "healthStatus": "healthy" | "needs_attention" | "neglected" | "emergency",
  "recommendations": "string with care advice based on visual analysis"
}`

// Shorter prompts for the Gemini API fallback.

const fallbackScheduleInstructions = `
Use realistic intervals. For example:
- Succulents: 10-14 days watering, 30 days fertilizing
- Tropical plants: 5-7 days watering, 14 days fertilizing
- Herbs: 3-5 days watering, 7-14 days fertilizing

Return ONLY the JSON, no other text:
{
  "watering_interval_days": <number>,
  "fertilizing_interval_days": <number>,
  "recommendations": "<brief care tips>"
}`

const fallbackStatusInstructions = `
Return JSON:
{
  "happiness_change": <number>,
  "new_happiness": <number (0-100)>,
  "recommendations": "<brief message>"
}`

const fallbackPhotoInstructions = `
Return JSON:
{
  "happiness": <number (0-100)>,
  "health_status": "healthy" | "needs_attention" | "neglected" | "emergency",
  "recommendations": "<brief assessment>"
}

For initial photos of healthy-looking plants, use 75-85 happiness.`
