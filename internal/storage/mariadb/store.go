package mariadb

// Store bundles the repositories into one storage.Store.
type Store struct {
	*StudentRepository
	*AttendanceRepository
}

// NewStore creates the combined store over one connection pool.
func NewStore(pool *Pool) *Store {
	return &Store{
		StudentRepository:    NewStudentRepository(pool),
		AttendanceRepository: NewAttendanceRepository(pool),
	}
}
