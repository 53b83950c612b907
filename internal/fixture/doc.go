// Package fixture wires record/replay into Go tests.
//
// A test builds a Fixture with New, handing it the real connect function,
// and then connects through the fixture instead of the client directly:
//
//	func TestReport(t *testing.T) {
//		fx := fixture.New(t, sqlconn.Connector("mysql"))
//		conn, err := fx.Connect(ctx, dsn)
//		...
//	}
//
// The mode is selected by test-binary flags, falling back to environment
// variables:
//
//	go test ./... -store-db-data -db-data-dir=testdata/db   # RECORD
//	go test ./... -mock-db-data -db-data-dir=testdata/db    # REPLAY
//	go test ./...                                           # PASSTHROUGH
//
// PMSM_STORE_DB_DATA, PMSM_MOCK_DB_DATA and PMSM_DATA_DIR supply the same
// settings through the environment. In RECORD mode the snapshot is written
// when the test finishes; REPLAY fails the test before its body runs when
// no snapshot exists.
package fixture
