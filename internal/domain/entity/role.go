package entity

import "time"

// Role paquete de permisos con nombre único (admin, empleado, cliente, docente...).
type Role struct {
	ID   string
	Name string
}

// Permission capacidad concedible identificada por el par (módulo, submódulo).
// Datos de referencia inmutables; su administración es CRUD fuera de este núcleo.
type Permission struct {
	ID        string
	Module    string
	Submodule string
}

// RoleBinding un perfil bajo el cual puede operar una cuenta: rol más las
// referencias opcionales a empleado y cliente. Una cuenta puede tener varios
// bindings simultáneos (ej. el mismo login como empleado y como cliente);
// Active habilita o deshabilita el binding con independencia de cuál esté
// vigente en la cuenta.
type RoleBinding struct {
	ID         string
	AccountID  string
	RoleID     string
	RoleName   string // denormalizado para listados de perfiles (JOIN roles)
	EmployeeID *string
	ClientID   *string
	Active     bool
	CreatedAt  time.Time
}
