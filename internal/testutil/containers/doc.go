// Package containers starts real databases for integration tests.
//
// The MySQL container backs the repository concurrency tests, where the
// open-slot unique indexes and row locks have to behave as they do in
// production. sqlite cannot stand in there because it serializes writers.
//
// One container is shared per package and truncated between tests:
//
//	func TestMain(m *testing.M) {
//	    c, err := containers.NewMySQLContainer(context.Background(), nil)
//	    if err != nil {
//	        panic(err)
//	    }
//	    mysqlContainer = c
//	    code := m.Run()
//	    _ = c.Terminate(context.Background())
//	    os.Exit(code)
//	}
//
// Files using this package carry the integration build tag and run with
// go test -tags integration.
package containers
