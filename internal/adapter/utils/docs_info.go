package utils

//run redis
//docker run -p 6379:6379 -d redis

//without redis every store falls back to memory, nothing survives a restart

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs

//mcp over stdio, one owner per process
//go run ./cmd/mcp -owner alice
