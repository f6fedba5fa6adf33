package generator

import (
	"fmt"
	"math/rand"
)

// Scenario is one container template: a project-shaped storyline with a pool
// of item names to draw from.
type Scenario struct {
	Name        string
	Description string
	ItemNames   []string
}

// Person is a simulated user that activity is attributed to.
type Person struct {
	ID   string
	Name string
}

// Catalog bundles everything needed to generate plausible activity for one
// industry.
type Catalog struct {
	Industry       string
	Scenarios      []Scenario
	Comments       []string
	BlockerReasons []string
	People         []Person
}

var people = []Person{
	{ID: "u-ava", Name: "Ava Thompson"},
	{ID: "u-liam", Name: "Liam Patel"},
	{ID: "u-mia", Name: "Mia Chen"},
	{ID: "u-noah", Name: "Noah Alvarez"},
	{ID: "u-zoe", Name: "Zoe Okafor"},
	{ID: "u-eli", Name: "Eli Nakamura"},
}

var comments = []string{
	"Synced with the team, we're on track for this week.",
	"Updated the doc with the latest numbers.",
	"Can someone take a second look before I move this forward?",
	"Scoped this down a bit, the full version moves to next cycle.",
	"Waiting on a reply from the vendor, will follow up tomorrow.",
	"Done with the first pass, feedback welcome.",
	"Flagging that the timeline here is tight.",
	"Looped in the stakeholders, no objections so far.",
	"Split out the remaining work into follow-ups.",
	"Quick status: about 70% through, no blockers.",
}

var blockerReasons = []string{
	"waiting on vendor response",
	"pending legal review",
	"dependency not yet delivered",
	"awaiting budget approval",
	"environment access not provisioned",
	"blocked on upstream decision",
}

var catalogs = map[string]Catalog{
	"technology": {
		Industry: "technology",
		Scenarios: []Scenario{
			{
				Name:        "Q4 Product Launch",
				Description: "Major product release with new features and infrastructure",
				ItemNames: []string{
					"Finalize release notes", "Ship feature flags", "Load test the API",
					"Update onboarding flow", "Migrate billing webhooks", "Review security checklist",
					"Prepare rollback plan", "Beta customer outreach",
				},
			},
			{
				Name:        "Cloud Infrastructure Migration",
				Description: "Migration from on-premise to cloud infrastructure",
				ItemNames: []string{
					"Inventory on-prem services", "Design VPC topology", "Pilot database migration",
					"Set up monitoring dashboards", "Validate backup strategy", "Cut over DNS",
					"Decommission legacy hosts", "Cost optimization review",
				},
			},
			{
				Name:        "Mobile App Redesign",
				Description: "Refresh of the mobile experience across platforms",
				ItemNames: []string{
					"Audit current screens", "Draft new design system", "Prototype navigation",
					"Accessibility review", "Instrument analytics events", "App store assets",
					"Beta rollout plan",
				},
			},
		},
		Comments:       comments,
		BlockerReasons: blockerReasons,
		People:         people,
	},
	"healthcare": {
		Industry: "healthcare",
		Scenarios: []Scenario{
			{
				Name:        "EMR System Migration",
				Description: "Electronic medical records upgrade and data migration",
				ItemNames: []string{
					"Assess current EMR usage", "Map patient record schema", "Run test migration",
					"Schedule provider training", "HIPAA compliance review", "Go-live checklist",
					"Post-launch support rota",
				},
			},
			{
				Name:        "Clinical Trial Management",
				Description: "Multi-site clinical research trial coordination",
				ItemNames: []string{
					"Draft study protocol", "Submit IRB paperwork", "Site readiness checks",
					"Patient recruitment outreach", "Data collection setup", "Interim analysis",
					"Publication outline",
				},
			},
			{
				Name:        "New Patient Portal",
				Description: "Self-service portal for appointments and results",
				ItemNames: []string{
					"Gather clinician requirements", "Design appointment flows", "Integrate lab results feed",
					"Security penetration test", "Pilot with one clinic", "Patient comms plan",
				},
			},
		},
		Comments:       comments,
		BlockerReasons: blockerReasons,
		People:         people,
	},
	"finance": {
		Industry: "finance",
		Scenarios: []Scenario{
			{
				Name:        "Regulatory Reporting Overhaul",
				Description: "Automating quarterly regulatory submissions",
				ItemNames: []string{
					"Catalog current reports", "Define data lineage", "Build validation rules",
					"Dry-run Q3 submission", "Audit trail review", "Sign-off workflow",
				},
			},
			{
				Name:        "Payments Platform Upgrade",
				Description: "Modernizing the core payments processing stack",
				ItemNames: []string{
					"Benchmark current throughput", "Design settlement pipeline", "Sandbox integration tests",
					"Fraud rules migration", "Reconciliation tooling", "Cutover rehearsal",
				},
			},
			{
				Name:        "Client Onboarding Automation",
				Description: "Streamlining KYC and account opening",
				ItemNames: []string{
					"Map onboarding journey", "Integrate identity vendor", "Document checklist automation",
					"Compliance sign-off flow", "Pilot with retail segment", "Drop-off analytics",
				},
			},
		},
		Comments:       comments,
		BlockerReasons: blockerReasons,
		People:         people,
	},
}

// CatalogFor returns the catalog for the given industry, falling back to
// technology for unknown values.
func CatalogFor(industry string) Catalog {
	if c, ok := catalogs[industry]; ok {
		return c
	}
	return catalogs["technology"]
}

// Industries lists the supported industry keys.
func Industries() []string {
	return []string{"technology", "healthcare", "finance"}
}

// NextScenario picks an unused scenario at random. Once the catalog is
// exhausted it recycles scenarios under a phase suffix so container names
// stay unique-ish.
func (c Catalog) NextScenario(used []string, rng *rand.Rand) Scenario {
	usedSet := make(map[string]bool, len(used))
	for _, name := range used {
		usedSet[name] = true
	}
	var available []Scenario
	for _, sc := range c.Scenarios {
		if !usedSet[sc.Name] {
			available = append(available, sc)
		}
	}
	if len(available) > 0 {
		return available[rng.Intn(len(available))]
	}
	sc := c.Scenarios[rng.Intn(len(c.Scenarios))]
	phase := len(used)/len(c.Scenarios) + 1
	sc.Name = fmt.Sprintf("%s (Phase %d)", sc.Name, phase)
	return sc
}

// RandomPerson returns a uniformly-chosen simulated user.
func (c Catalog) RandomPerson(rng *rand.Rand) Person {
	return c.People[rng.Intn(len(c.People))]
}

// RandomComment returns a comment line from the pool.
func (c Catalog) RandomComment(rng *rand.Rand) string {
	return c.Comments[rng.Intn(len(c.Comments))]
}

// RandomBlockerReason returns a blocker reason from the pool.
func (c Catalog) RandomBlockerReason(rng *rand.Rand) string {
	return c.BlockerReasons[rng.Intn(len(c.BlockerReasons))]
}

// RandomItemName draws an item name from the scenario pool, falling back to
// a generic follow-up name when the pool is empty.
func (s Scenario) RandomItemName(rng *rand.Rand) string {
	if len(s.ItemNames) == 0 {
		return "Follow-up task"
	}
	return s.ItemNames[rng.Intn(len(s.ItemNames))]
}
