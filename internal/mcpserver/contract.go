package mcpserver

// TaskFormatContract describes the Markdown task format accepted by the
// create_task tool and the import command.
const TaskFormatContract = `# Sowilo Task Format Contract

A task can be written as a Markdown file with an optional YAML frontmatter.

## Structure

` + "```" + `markdown
---
id: quarterly-report          # OPTIONAL – stable id; generated when absent
title: Write quarterly report # OPTIONAL if the body has a "# " heading
priority: high                # OPTIONAL – none, low, medium, high or 0-3
due: 2026-03-05 14:00         # OPTIONAL – RFC 3339, YYYY-MM-DD HH:MM or YYYY-MM-DD
completed: false              # OPTIONAL
---

Notes in standard Markdown.
` + "```" + `

## Rules

1. **Frontmatter** must start at the first line, fenced by ` + "`" + `---` + "`" + `.
2. **Title** comes from the frontmatter, otherwise from the first ` + "`" + `# ` + "`" + ` heading. A task without a title is rejected.
3. **Body** becomes the task notes. Longer notes make the task's estimated duration longer.
4. **Priority** drives both ranking and estimation: high = 1h, medium = 30m, low = 15m, none = 20m
   before the notes-length factor.
5. **Due** dates without a zone are read in the server's scheduler timezone.
6. Leave ` + "`" + `due` + "`" + ` empty to let ` + "`" + `auto_schedule` + "`" + ` or the backlog sweep pick a slot.

## Example

` + "```" + `markdown
---
priority: medium
---

# Prepare design review

- collect open questions
- book the room
` + "```" + `
`
