package mcpserver

// SeedFormatContract describes seeds and how they match notices, for LLM
// consumers creating or reviewing seeds.
const SeedFormatContract = `# Tenderwatch Seed Format

A seed is a saved filter over public procurement notices (Diário da
República, Série II, Parte L). Seeds are stored in data/seeds.json.

## Fields

` + "```" + `json
{
  "code": "RESIDUOS",            // unique; generated as SEEDxxxxxx when omitted
  "name": "Resíduos urbanos",    // label shown on matched notices
  "district": "Lisboa",          // OPTIONAL: exact district
  "title_tags": ["contentores"], // OPTIONAL: any must appear in the title
  "tags": ["resíduos"]           // OPTIONAL: any must appear in the notice text
}
` + "```" + `

## Matching

1. All comparisons ignore case but not accents ("RESÍDUOS" matches
   "resíduos", "residuos" does not).
2. A district, when set, must equal the notice district.
3. title_tags, when set, need at least one substring hit in the title
   (description, falling back to the contract designation).
4. tags, when set, need at least one substring hit in the title, awarding
   entity, platform, tax id, municipality or parish.
5. Every constraint that is set must hold. A seed with none set matches
   every notice.
6. A notice is labelled with the name of the FIRST seed it matches, in
   stored order.

## Tips

- Prefer short stems ("resídu") to catch plural and singular forms.
- Use match_notice to check a seed against a live notice before adding
  more seeds.
- Only notices first seen in the latest batch are emailed; seeds added now
  apply to the next batch and to the feeds immediately.
`
