package ai

import (
	"fmt"
	"strings"
)

// DraftContext carries the current canvas field values fed into a
// block template. Empty fields are omitted from the prompt.
type DraftContext struct {
	CanvasName       string
	Problem          string
	Solution         string
	UniqueValueProp  string
	UnfairAdvantage  string
	CustomerSegments string
	KeyMetrics       string
	Channels         string
	CostStructure    string
	RevenueStreams   string
	LinkedBacklogs   []BacklogSummary
}

// BacklogSummary is the slice of a backlog item that feeds the
// problem-block prompt.
type BacklogSummary struct {
	Title       string
	Description string
	Priority    string
	Tags        string
}

// contextField names one canvas field a block template pulls in.
type contextField struct {
	label  string
	inline bool // rendered on one line rather than as a labelled block
	value  func(DraftContext) string
}

// blockTemplate describes how one canvas block is drafted: which other
// fields it sees, what the model is asked to write, and how.
type blockTemplate struct {
	section      string
	context      []contextField
	usesBacklogs bool
	guidelines   []string
	format       string
}

var segmentsField = contextField{
	label:  "Customer segments",
	inline: true,
	value:  func(c DraftContext) string { return c.CustomerSegments },
}

var problemField = contextField{
	label: "Problems being solved",
	value: func(c DraftContext) string { return c.Problem },
}

var solutionField = contextField{
	label: "Solution",
	value: func(c DraftContext) string { return c.Solution },
}

// blockTemplates is the full drafting contract: one entry per canvas
// block, keyed by the block identifiers the API accepts.
var blockTemplates = map[string]blockTemplate{
	"problem": {
		section:      "Problems",
		context:      []contextField{segmentsField},
		usesBacklogs: true,
		guidelines: []string{
			"List the top 3 problems your customers actually face, concretely",
			"Each problem should be clear and measurable",
			"Describe the problems from the customer's point of view",
			"Keep it brief (1-2 sentences per problem)",
		},
		format: "Write as a numbered list.",
	},
	"solution": {
		section: "Solution",
		context: []contextField{problemField},
		guidelines: []string{
			"Propose 3-5 core features or services that solve the problems above",
			"Each solution should be concrete and actionable",
			"The link between problem and solution must be obvious",
			"Focus on customer value over technical detail",
		},
		format: "Write as a numbered list.",
	},
	"uniqueValueProp": {
		section: "Unique Value Proposition",
		context: []contextField{segmentsField, problemField, solutionField},
		guidelines: []string{
			"Express it in a single clear sentence",
			"Explain why a customer should choose this product or service",
			"Include the core value that sets it apart from competitors",
			"Offer a concrete, measurable benefit",
			"Focus on genuine value, not marketing copy",
		},
		format: "Write one clear sentence.",
	},
	"unfairAdvantage": {
		section: "Unfair Advantage",
		context: []contextField{solutionField},
		guidelines: []string{
			"Something competitors cannot easily copy or buy",
			"Insider information, expert team, proprietary technology, network effects",
			"Only genuine advantages count (a mere idea is not an unfair advantage)",
			"Be concrete and realistic",
			"If there is none yet, honestly write \"none yet\" or \"in development\"",
		},
		format: "Write 2-3 brief items.",
	},
	"customerSegments": {
		section: "Customer Segments",
		context: []contextField{problemField},
		guidelines: []string{
			"Define the target customers clearly and specifically",
			"Cover demographics (age, occupation, income)",
			"Cover behavior patterns and traits",
			"Prioritize the early-adopter group",
			"\"Everyone\" is not a customer - narrow it down",
		},
		format: "Write 2-3 core customer segments.",
	},
	"keyMetrics": {
		section: "Key Metrics",
		context: []contextField{solutionField},
		guidelines: []string{
			"Metrics that measure whether the business is succeeding",
			"Metrics must be measurable and trackable",
			"Real metrics, not vanity metrics",
			"Consider the AARRR framework (Acquisition, Activation, Retention, Revenue, Referral)",
			"Pick only 3-5 key metrics",
		},
		format: "Write as a numbered list.",
	},
	"channels": {
		section: "Channels",
		context: []contextField{segmentsField},
		guidelines: []string{
			"Name the paths that reach your customers",
			"Consider both free and paid channels",
			"Use channels the customer segments actually use",
			"Cover inbound and outbound strategies",
			"Early on, channels that don't scale are fine too",
		},
		format: "Write as a numbered list.",
	},
	"costStructure": {
		section: "Cost Structure",
		context: []contextField{
			solutionField,
			{label: "Channels", value: func(c DraftContext) string { return c.Channels }},
		},
		guidelines: []string{
			"The main cost items needed to run the business",
			"Separate fixed and variable costs",
			"Focus on the largest cost items",
			"Cover key costs such as payroll, infrastructure, and marketing",
			"Be realistic and specific",
		},
		format: "Write as a numbered list.",
	},
	"revenueStreams": {
		section: "Revenue Streams",
		context: []contextField{
			segmentsField,
			{label: "Unique value proposition", inline: true, value: func(c DraftContext) string { return c.UniqueValueProp }},
		},
		guidelines: []string{
			"State clearly how the business makes money",
			"Name the pricing model (subscription, one-off, freemium, ads)",
			"Separate primary and secondary revenue streams",
			"Value customers will actually pay for",
			"A realistic, testable revenue model",
		},
		format: "Write as a numbered list.",
	},
}

func buildDraftPrompt(tmpl blockTemplate, ctx DraftContext) string {
	name := ctx.CanvasName
	if name == "" {
		name = "the business"
	}

	var b strings.Builder
	b.WriteString("You are a business expert helping to fill in a lean canvas.\n\n")
	fmt.Fprintf(&b, "Business name: %s\n", name)

	for _, field := range tmpl.context {
		v := field.value(ctx)
		if v == "" {
			continue
		}
		if field.inline {
			fmt.Fprintf(&b, "%s: %s\n", field.label, v)
		} else {
			fmt.Fprintf(&b, "%s:\n%s\n", field.label, v)
		}
	}

	if tmpl.usesBacklogs && len(ctx.LinkedBacklogs) > 0 {
		b.WriteString("\nLinked customer problem backlog:\n")
		for i, item := range ctx.LinkedBacklogs {
			fmt.Fprintf(&b, "\n%d. [%s] %s", i+1, item.Priority, item.Title)
			if item.Description != "" {
				fmt.Fprintf(&b, "\n   Description: %s", item.Description)
			}
			if item.Tags != "" {
				fmt.Fprintf(&b, "\n   Tags: %s", item.Tags)
			}
		}
		b.WriteString("\n\nUse these backlog items to summarize the most important problems and rank them.\n")
	}

	fmt.Fprintf(&b, "\nWrite the \"%s\" section. Follow these guidelines:\n", tmpl.section)
	for _, g := range tmpl.guidelines {
		fmt.Fprintf(&b, "- %s\n", g)
	}
	if tmpl.usesBacklogs && len(ctx.LinkedBacklogs) > 0 {
		b.WriteString("- Consider the shared patterns and priorities of the backlog items above\n")
	}

	fmt.Fprintf(&b, "\nFormat: %s", tmpl.format)
	return b.String()
}

func buildExtractPrompt(notes string) string {
	return fmt.Sprintf(`You are a customer development expert. Your job is to analyze customer interview notes and extract the problems customers face.

Here are the customer interview/meeting notes:

%s

Extract the problems customers are facing from the notes above and write them as a structured backlog.

For each problem, provide the following fields as a JSON array:
- title: the problem summarized in one sentence (clear and specific)
- description: a detailed explanation of the problem (2-3 sentences, from the customer's point of view)
- priority: the problem's priority (one of "High", "Medium", "Low")
- source: where the problem came from (one of "Interview", "Meeting", "Survey", "Research", "Other")
- suggestedTags: related tags (at most 3, as a comma-separated string)

Priority criteria:
- High: problems the customer mentions repeatedly or with strong emotion, or with direct business impact
- Medium: important but not urgent problems, improvements
- Low: secondary problems, preference-level issues

Respond with a pure JSON array in exactly this shape and nothing else:
[
  {
    "title": "problem title",
    "description": "problem description",
    "priority": "High",
    "source": "Interview",
    "suggestedTags": "tag1,tag2,tag3"
  }
]

Extract at least 1 and at most 10 problems.`, notes)
}

func buildGroupPrompt(items []BacklogInput) string {
	var list strings.Builder
	for i, item := range items {
		if i > 0 {
			list.WriteString("\n\n")
		}
		description := item.Description
		if description == "" {
			description = "none"
		}
		tags := item.Tags
		if tags == "" {
			tags = "none"
		}
		fmt.Fprintf(&list, "%d. [ID: %s] %s\n   Priority: %s\n   Description: %s\n   Tags: %s",
			i+1, item.ID, item.Title, item.Priority, description, tags)
	}

	return fmt.Sprintf(`You are a customer problem analyst. Analyze the following backlog items and group the similar problems together.

Backlog items:
%s

Group the items above by these criteria:
1. Problem similarity (do they address the same customer pain point?)
2. Related solution approaches
3. Similar customer segments
4. Overlapping tags

Provide the grouping as a JSON array in this shape:
[
  {
    "groupName": "group name (one that describes the problem area well)",
    "description": "group description (why these items belong together)",
    "backlogIds": ["array of backlog IDs"],
    "suggestedPriority": "High/Medium/Low (the group's overall priority)",
    "suggestedTags": "shared tags, comma-separated"
  }
]

Rules:
- Only form a group when it has at least 2 backlog items
- One backlog item may belong to multiple groups
- If nothing is similar, return an empty array
- Suggest at most 5 groups
- Respond with the pure JSON array only, no other text`, list.String())
}
