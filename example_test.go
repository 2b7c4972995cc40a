package simpledb_test

import (
	"context"
	"fmt"
	"log"

	"github.com/medatechnology/simpledb"
	"github.com/medatechnology/simpledb/sqlite"
)

func openExample() *simpledb.DB {
	backend, err := sqlite.Open(*sqlite.NewDefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	db := simpledb.New(backend, simpledb.Config{Logger: simpledb.NewNoopLogger()})
	_, err = db.Transaction(context.Background(), `
		CREATE TABLE users (Id INTEGER PRIMARY KEY AUTOINCREMENT, Name TEXT, Active BOOLEAN);
		INSERT INTO users (Name, Active) VALUES ('Ann', 1);
		INSERT INTO users (Name, Active) VALUES ('Bob', 0);`)
	if err != nil {
		log.Fatal(err)
	}
	return db
}

func ExampleDB_Csv() {
	db := openExample()
	defer db.Close()

	blob, err := db.Csv(context.Background(), "SELECT Id, Name, Active FROM users ORDER BY Id")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(*blob)
	// Output: !Id~$Name~^Active|1~Ann~1|2~Bob~0
}

func ExampleDB_Csv_params() {
	db := openExample()
	defer db.Close()

	blob, err := db.Csv(context.Background(), "SELECT Name FROM users WHERE Active = @active",
		simpledb.With("active", false))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(*blob)
	// Output: $Name|Bob
}

func ExampleDB_Save() {
	db := openExample()
	defer db.Close()
	ctx := context.Background()

	rec, err := simpledb.RecordFromJSON([]byte(`{"Id":0,"Name":"Cid","Active":true}`))
	if err != nil {
		log.Fatal(err)
	}
	id, err := db.Save(ctx, "users", rec)
	if err != nil {
		log.Fatal(err)
	}
	name, err := db.Str(ctx, "SELECT Name FROM users WHERE Id = @id", simpledb.With("id", id))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(id, *name)
	// Output: 3 Cid
}

func ExampleDB_Decoder() {
	db := openExample()
	defer db.Close()

	table, err := db.Decoder().DecodeString("!Id~$Name|1~Ann|2~Ø")
	if err != nil {
		log.Fatal(err)
	}
	for _, row := range table.Records() {
		fmt.Println(row["Id"], row["Name"])
	}
	// Output:
	// 1 Ann
	// 2 <nil>
}
