package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"simplane/internal/schedule"
	"simplane/internal/store"
)

// Synthetic generates activity entirely in memory. It is the default
// generator when no platform URL is configured, and the workhorse for tests.
type Synthetic struct {
	catalog Catalog
	rng     *rand.Rand
	now     func() time.Time
}

// NewSynthetic creates a local generator for the given industry.
func NewSynthetic(industry string) *Synthetic {
	return &Synthetic{
		catalog: CatalogFor(industry),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
}

// NewSyntheticWithRand creates a deterministic generator for tests.
func NewSyntheticWithRand(industry string, rng *rand.Rand) *Synthetic {
	return &Synthetic{catalog: CatalogFor(industry), rng: rng, now: time.Now}
}

// Bootstrap builds the initial containers, each seeded with a handful of
// items in mixed states so the world looks lived-in from the first tick.
func (g *Synthetic) Bootstrap(ctx context.Context, cfg store.JobConfig) (*store.Delta, error) {
	n := cfg.InitialContainers
	if n <= 0 {
		n = 1
	}

	delta := &store.Delta{}
	var used []string
	for i := 0; i < n; i++ {
		container := g.newContainer(used)
		used = append(used, container.Scenario)
		delta.NewContainers = append(delta.NewContainers, container)
	}
	return delta, nil
}

// Perform produces the delta for one activity. Unknown activity types and
// missing subjects yield an empty delta rather than an error; the runner
// just reschedules.
func (g *Synthetic) Perform(ctx context.Context, activity schedule.ActivityType, subject *store.WorkItem, world *store.WorldState) (*store.Delta, error) {
	switch activity {
	case schedule.ActivityCreateContainer:
		container := g.newContainer(world.UsedScenarios)
		return &store.Delta{NewContainers: []store.Container{container}}, nil

	case schedule.ActivityCreateItem:
		target := world.NewestContainer()
		if target == nil {
			container := g.newContainer(world.UsedScenarios)
			return &store.Delta{NewContainers: []store.Container{container}}, nil
		}
		item := g.newItem(Scenario{Name: target.Scenario, ItemNames: g.scenarioNames(target.Scenario)})
		return &store.Delta{
			NewItems: map[string][]store.WorkItem{target.ID: {item}},
		}, nil

	case schedule.ActivityCreateSubItem:
		if subject == nil {
			return &store.Delta{}, nil
		}
		parent := world.ContainerOf(subject.ID)
		if parent == nil {
			return &store.Delta{}, nil
		}
		sub := g.newItem(Scenario{Name: parent.Scenario, ItemNames: g.scenarioNames(parent.Scenario)})
		sub.Name = fmt.Sprintf("%s: %s", subject.Name, sub.Name)
		return &store.Delta{
			NewItems: map[string][]store.WorkItem{parent.ID: {sub}},
			Updates:  []store.ItemUpdate{{ItemID: subject.ID, SubItemID: sub.ID}},
		}, nil

	case schedule.ActivityStartWork:
		if subject == nil {
			return &store.Delta{}, nil
		}
		person := g.catalog.RandomPerson(g.rng)
		return &store.Delta{Updates: []store.ItemUpdate{{
			ItemID:       subject.ID,
			Status:       store.ItemInProgress,
			Assignee:     person.ID,
			AssigneeName: person.Name,
		}}}, nil

	case schedule.ActivityProgressUpdate, schedule.ActivityConversation, schedule.ActivityOutOfOffice:
		if subject == nil {
			return &store.Delta{}, nil
		}
		return &store.Delta{Updates: []store.ItemUpdate{{
			ItemID:       subject.ID,
			CommentAdded: true,
		}}}, nil

	case schedule.ActivityBlock:
		if subject == nil {
			return &store.Delta{}, nil
		}
		return &store.Delta{Updates: []store.ItemUpdate{{
			ItemID:        subject.ID,
			Status:        store.ItemBlocked,
			BlockerReason: g.catalog.RandomBlockerReason(g.rng),
			CommentAdded:  true,
		}}}, nil

	case schedule.ActivityUnblock:
		if subject == nil {
			return &store.Delta{}, nil
		}
		return &store.Delta{Updates: []store.ItemUpdate{{
			ItemID:       subject.ID,
			Status:       store.ItemInProgress,
			CommentAdded: true,
		}}}, nil

	case schedule.ActivityComplete:
		if subject == nil {
			return &store.Delta{}, nil
		}
		return &store.Delta{Updates: []store.ItemUpdate{{
			ItemID: subject.ID,
			Status: store.ItemCompleted,
		}}}, nil

	case schedule.ActivityReassign:
		if subject == nil {
			return &store.Delta{}, nil
		}
		person := g.catalog.RandomPerson(g.rng)
		// Avoid a no-op reassignment when possible.
		for i := 0; i < 3 && person.ID == subject.Assignee; i++ {
			person = g.catalog.RandomPerson(g.rng)
		}
		return &store.Delta{Updates: []store.ItemUpdate{{
			ItemID:       subject.ID,
			Assignee:     person.ID,
			AssigneeName: person.Name,
		}}}, nil

	default:
		return &store.Delta{}, nil
	}
}

// Cleanup has nothing external to tear down; it just reports what the world
// held.
func (g *Synthetic) Cleanup(ctx context.Context, world *store.WorldState) *CleanupReport {
	report := &CleanupReport{ContainersRemoved: len(world.Containers)}
	report.ItemsRemoved = world.TotalItems()
	return report
}

func (g *Synthetic) newContainer(usedScenarios []string) store.Container {
	sc := g.catalog.NextScenario(usedScenarios, g.rng)
	now := g.now().UTC()
	container := store.Container{
		ID:        uuid.NewString()[:8],
		Name:      sc.Name,
		Scenario:  sc.Name,
		CreatedAt: now,
	}

	// Seed 3-8 items, a few already picked up.
	count := 3 + g.rng.Intn(6)
	for i := 0; i < count; i++ {
		item := g.newItem(sc)
		if g.rng.Float64() < 0.3 {
			item.Status = store.ItemInProgress
			started := now
			item.StartedAt = &started
			person := g.catalog.RandomPerson(g.rng)
			item.Assignee = person.ID
			item.AssigneeName = person.Name
		}
		container.Items = append(container.Items, item)
	}
	return container
}

func (g *Synthetic) newItem(sc Scenario) store.WorkItem {
	return store.WorkItem{
		ID:        uuid.NewString()[:8],
		Name:      sc.RandomItemName(g.rng),
		Status:    store.ItemNew,
		CreatedAt: g.now().UTC(),
	}
}

// scenarioNames recovers the item-name pool for a container created from the
// given scenario, so later create_item calls stay on theme.
func (g *Synthetic) scenarioNames(scenarioName string) []string {
	for _, sc := range g.catalog.Scenarios {
		if sc.Name == scenarioName {
			return sc.ItemNames
		}
	}
	return nil
}
