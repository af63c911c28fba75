// Package datakit is a toolbox for everyday data chores: tabular data
// handling, file persistence across common formats, British national grid
// coordinate conversion, approximate text matching and a thin PostgreSQL
// façade for moving tables in and out of a database.
//
// # Packages
//
// The building blocks live under pkg/:
//
//   - table: an ordered, column-named tabular container with type
//     inference, the currency every other package trades in
//   - store: save/load dispatch across CSV, JSON, XLSX, Arrow/Feather and
//     gob, with transparent gzip/zstd/lz4/snappy compression by extension
//   - pathutil: project-relative path construction with on-demand
//     directory creation
//   - geom: WGS84 to OSGB36 national grid conversion and small planar
//     point helpers
//   - text: fuzzy string matching plus TF-IDF, cosine similarity and
//     Euclidean distance
//   - dbms: a PostgreSQL connector with database/schema/table lifecycle
//     operations and chunked COPY-based bulk import
//   - ops: file downloads with retries
//   - config: connection profiles and YAML configuration loading
//   - errors, logger: shared error taxonomy and structured logging
//
// # Quick start
//
// Convert a CSV file to compressed Feather and load it into PostgreSQL:
//
//	tbl, err := store.LoadTable("cities.csv")
//	if err != nil {
//	    return err
//	}
//	if err := store.SaveTable(tbl, "cities.feather.zst"); err != nil {
//	    return err
//	}
//
//	connector, err := dbms.NewPostgresConnector(config.DefaultProfile())
//	if err != nil {
//	    return err
//	}
//	if err := connector.Connect(ctx); err != nil {
//	    return err
//	}
//	defer connector.Close()
//
//	err = connector.ImportTable(ctx, tbl, "cities", "public", dbms.ImportOptions{
//	    IfExists:  dbms.IfExistsReplace,
//	    ChunkSize: 10000,
//	})
//
// The datakit command under cmd/datakit exposes the same operations on
// the command line.
package datakit
