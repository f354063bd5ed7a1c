package mcpserver

// StatusWorkflow documents the inquiry statuses for LLM clients.
const StatusWorkflow = `# BlueCheck Inquiry Statuses

Every inquiry has exactly one status. New submissions start as ` + "`new`" + `.

| Status | Meaning |
|---|---|
| new | Submitted through the contact form, nobody has reached out yet |
| contacted | The customer has been called or emailed |
| scheduled | An inspection date has been agreed |
| completed | The inspection is done and the report delivered |
| cancelled | The customer withdrew or could not be reached |

Any status may follow any other; there is no enforced order. Moving an
inquiry back to ` + "`new`" + ` is allowed, for example after a bounced email.

Inspection types: ` + "`pre-purchase`" + ` (Pre-Purchase Inspection) and
` + "`new-home`" + ` (New Home Inspection).

Use update_inquiry_status to change a status. Statistics are available via
inquiry_stats; "recent" means created in the last 7 days.
`
