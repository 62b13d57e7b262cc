package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/xela07ax/floorwatch/internal/domain"
)

// Directory - статический справочник площадки, загружается один раз при старте.
type Directory struct {
	Employees []domain.Entity
	Machines  []domain.Entity
	// Permanent - MAC-адреса с постоянным допуском
	Permanent []string
	// Temporary - стартовый набор временных допусков
	Temporary []string
}

// IdentityRegistry резолвит устройства в сущности справочника и хранит временные допуски.
// Справочник и постоянные допуски неизменяемы после создания, временный набор
// защищён RWMutex: каждый вызов атомарен, частичных состояний снаружи не видно.
type IdentityRegistry struct {
	byID        map[string]domain.Entity
	byMachineID map[string]domain.Entity
	employees   []domain.Entity
	machines    []domain.Entity
	permanent   map[string]struct{}

	mu        sync.RWMutex
	temporary map[string]struct{}

	metrics *Metrics
}

func NewIdentityRegistry(dir Directory, metrics *Metrics) (*IdentityRegistry, error) {
	r := &IdentityRegistry{
		byID:        make(map[string]domain.Entity, len(dir.Employees)+len(dir.Machines)),
		byMachineID: make(map[string]domain.Entity, len(dir.Machines)),
		permanent:   make(map[string]struct{}, len(dir.Permanent)),
		employees:   make([]domain.Entity, 0, len(dir.Employees)),
		machines:    make([]domain.Entity, 0, len(dir.Machines)),
		temporary:   make(map[string]struct{}, len(dir.Temporary)),
		metrics:     metrics,
	}

	for _, e := range dir.Employees {
		e.Kind = domain.KindEmployee
		if err := r.index(e); err != nil {
			return nil, err
		}
		r.employees = append(r.employees, e)
	}
	for _, m := range dir.Machines {
		m.Kind = domain.KindMachine
		if err := r.index(m); err != nil {
			return nil, err
		}
		if m.MachineID != "" {
			if _, dup := r.byMachineID[m.MachineID]; dup {
				return nil, fmt.Errorf("duplicate machine id %q", m.MachineID)
			}
			r.byMachineID[m.MachineID] = r.byID[domain.NormalizeID(m.ID)]
		}
		r.machines = append(r.machines, r.byID[domain.NormalizeID(m.ID)])
	}

	for _, id := range dir.Permanent {
		if id = domain.NormalizeID(id); id != "" {
			r.permanent[id] = struct{}{}
		}
	}
	for _, id := range dir.Temporary {
		if id = domain.NormalizeID(id); id != "" {
			r.temporary[id] = struct{}{}
		}
	}
	r.observe()
	return r, nil
}

func (r *IdentityRegistry) index(e domain.Entity) error {
	id := domain.NormalizeID(e.ID)
	if id == "" {
		return fmt.Errorf("%s %q: %w", e.Kind, e.Name, domain.ErrInvalidIdentifier)
	}
	if _, dup := r.byID[id]; dup {
		return fmt.Errorf("duplicate device id %q", id)
	}
	e.ID = id
	r.byID[id] = e
	return nil
}

// Resolve ищет сотрудника или станок по идентификатору устройства без учёта регистра.
func (r *IdentityRegistry) Resolve(id string) (domain.Entity, error) {
	e, ok := r.byID[domain.NormalizeID(id)]
	if !ok {
		return domain.Entity{}, fmt.Errorf("device %q: %w", id, domain.ErrUnresolvedIdentity)
	}
	return e, nil
}

// ResolveMachine ищет станок по ключу потока датчиков.
func (r *IdentityRegistry) ResolveMachine(machineID string) (domain.Entity, error) {
	e, ok := r.byMachineID[machineID]
	if !ok {
		return domain.Entity{}, fmt.Errorf("machine %q: %w", machineID, domain.ErrUnresolvedIdentity)
	}
	return e, nil
}

// AuthorizationStatus - постоянный допуск важнее временного.
func (r *IdentityRegistry) AuthorizationStatus(id string) domain.AuthorizationStatus {
	id = domain.NormalizeID(id)
	if _, ok := r.permanent[id]; ok {
		return domain.AuthPermanent
	}

	r.mu.RLock()
	_, ok := r.temporary[id]
	r.mu.RUnlock()

	if ok {
		return domain.AuthTemporary
	}
	return domain.AuthUnauthorized
}

// AddTemporary идемпотентен: false, если идентификатор уже был в наборе или пуст.
func (r *IdentityRegistry) AddTemporary(id string) bool {
	id = domain.NormalizeID(id)
	if id == "" {
		return false
	}

	r.mu.Lock()
	_, exists := r.temporary[id]
	r.temporary[id] = struct{}{}
	r.observeSize(len(r.temporary))
	r.mu.Unlock()

	return !exists
}

// RemoveTemporary сообщает, был ли идентификатор в наборе.
func (r *IdentityRegistry) RemoveTemporary(id string) bool {
	id = domain.NormalizeID(id)

	r.mu.Lock()
	_, found := r.temporary[id]
	delete(r.temporary, id)
	r.observeSize(len(r.temporary))
	r.mu.Unlock()

	return found
}

// ListTemporary - отсортированный снимок набора, никогда не nil.
func (r *IdentityRegistry) ListTemporary() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.temporary))
	for id := range r.temporary {
		out = append(out, id)
	}
	r.mu.RUnlock()

	slices.Sort(out)
	return out
}

// ReplaceTemporary атомарно подменяет весь набор (ресинхронизация с Redis).
func (r *IdentityRegistry) ReplaceTemporary(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = domain.NormalizeID(id); id != "" {
			next[id] = struct{}{}
		}
	}

	r.mu.Lock()
	r.temporary = next
	r.observeSize(len(next))
	r.mu.Unlock()
}

// Employees и Machines отдают копии, справочник снаружи не меняется.
func (r *IdentityRegistry) Employees() []domain.Entity {
	return slices.Clone(r.employees)
}

func (r *IdentityRegistry) Machines() []domain.Entity {
	return slices.Clone(r.machines)
}

func (r *IdentityRegistry) observe() {
	r.mu.Lock()
	r.observeSize(len(r.temporary))
	r.mu.Unlock()
}

// observeSize зовётся под r.mu, иначе гонка писателей оставит в gauge устаревший размер.
func (r *IdentityRegistry) observeSize(size int) {
	if r.metrics == nil {
		return
	}
	r.metrics.TemporaryAuthorized.Set(float64(size))
}
