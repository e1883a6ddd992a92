// Project Structure Overview
/*
scentdb-backend/
├── cmd/
│   ├── server/          HTTP ingest and catalog API
│   └── perfumectl/      operator CLI (migrate, ingest, token, seed)
├── internal/
│   ├── config/          env configuration, DSN, logging setup
│   ├── normalize/       name keys used for entity identity
│   ├── models/          gorm schema and the candidate record
│   ├── database/        connection, migrations, transactions
│   ├── services/        reconciler, batch driver, failure taxonomy, catalog reads
│   ├── sources/         candidate feed readers (jsonl, json, yaml)
│   ├── handlers/        gin handlers
│   ├── middleware/      auth, rate limit, logging, cors
│   ├── router/          route wiring
│   ├── cli/             cobra commands
│   └── utils/           validation, jwt, pagination, responses
└── go.mod
*/

// Package scentdb reconciles crawled perfume records into a normalized catalog.
package scentdb
