package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "marketplace_products"

// buildIndexMapping returns the full JSON mapping for the products index,
// including an edge-ngram autocomplete subfield on name. Variant colors and
// sizes are denormalized into flat keyword arrays so facet filters stay
// simple term queries.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":            { "type": "keyword" },
      "name":          { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "description":   { "type": "text" },
      "category_id":   { "type": "keyword" },
      "category_name": { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "brand_id":      { "type": "keyword" },
      "brand_name":    { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "price":         { "type": "long" },
      "currency":      { "type": "keyword" },
      "status":        { "type": "keyword" },
      "featured":      { "type": "boolean" },
      "in_stock":      { "type": "boolean" },
      "rating":        { "type": "float" },
      "colors":        { "type": "keyword" },
      "sizes":         { "type": "keyword" },
      "tags":          { "type": "keyword" },
      "image_url":     { "type": "keyword", "index": false },
      "created_at":    { "type": "date" },
      "updated_at":    { "type": "date" }
    }
  }
}`
}
