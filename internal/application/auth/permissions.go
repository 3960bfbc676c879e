package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/gestionpro/gestion-api/internal/domain/entity"
	"github.com/gestionpro/gestion-api/internal/domain/repository"
)

// PermissionResolver resuelve el conjunto de permisos (módulo, submódulo) de
// un rol contra el join rol→permisos. Función pura del id de rol: llamadas
// repetidas son idempotentes y reflejan el último estado administrado.
type PermissionResolver struct {
	perms repository.PermissionRepository
}

// NewPermissionResolver construye el resolver.
func NewPermissionResolver(perms repository.PermissionRepository) *PermissionResolver {
	return &PermissionResolver{perms: perms}
}

// Resolve devuelve los permisos concedidos al rol.
func (r *PermissionResolver) Resolve(ctx context.Context, roleID string) ([]entity.Permission, error) {
	if roleID == "" {
		return nil, fmt.Errorf("permisos: roleID es obligatorio")
	}
	return r.perms.ListByRole(ctx, roleID)
}

// RoleCache cache explícita de permisos por rol para las verificaciones de
// autorización por request (middleware HTTP). Se inyecta como dependencia, no
// es estado global del proceso.
//
// Contrato de invalidación: toda escritura administrativa sobre
// role_permissions DEBE llamar Invalidate(roleID) (o InvalidateAll si el
// alcance no se conoce). Cualquier conjunto cacheado por un cliente (ej. en su
// sesión) es solo informativo: la autorización del lado servidor pasa siempre
// por esta cache y su contrato de invalidación.
type RoleCache struct {
	resolver *PermissionResolver

	mu     sync.RWMutex
	byRole map[string][]entity.Permission
}

// NewRoleCache construye la cache sobre el resolver.
func NewRoleCache(resolver *PermissionResolver) *RoleCache {
	return &RoleCache{resolver: resolver, byRole: make(map[string][]entity.Permission)}
}

// Resolve devuelve los permisos del rol, resolviendo y cacheando en el primer
// acceso.
func (c *RoleCache) Resolve(ctx context.Context, roleID string) ([]entity.Permission, error) {
	c.mu.RLock()
	perms, ok := c.byRole[roleID]
	c.mu.RUnlock()
	if ok {
		return perms, nil
	}
	perms, err := c.resolver.Resolve(ctx, roleID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.byRole[roleID] = perms
	c.mu.Unlock()
	return perms, nil
}

// Allows informa si el rol tiene concedido el par (módulo, submódulo).
func (c *RoleCache) Allows(ctx context.Context, roleID, module, submodule string) (bool, error) {
	perms, err := c.Resolve(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Module == module && p.Submodule == submodule {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate descarta la entrada del rol. Debe invocarse tras cada escritura
// administrativa sobre los permisos de ese rol.
func (c *RoleCache) Invalidate(roleID string) {
	c.mu.Lock()
	delete(c.byRole, roleID)
	c.mu.Unlock()
}

// InvalidateAll descarta toda la cache.
func (c *RoleCache) InvalidateAll() {
	c.mu.Lock()
	c.byRole = make(map[string][]entity.Permission)
	c.mu.Unlock()
}
