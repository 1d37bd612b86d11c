// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package database

// Event names triggered by the facade. Listeners subscribe through
// [Database.On]; the wildcard channel receives every one of these.
const (
	EventDatabaseCreate = "database_create"
	EventDatabaseDelete = "database_delete"

	EventCollectionCreate = "collection_create"
	EventCollectionRead   = "collection_read"
	EventCollectionUpdate = "collection_update"
	EventCollectionDelete = "collection_delete"
	EventCollectionList   = "collection_list"

	EventAttributeCreate = "attribute_create"
	EventAttributeUpdate = "attribute_update"
	EventAttributeDelete = "attribute_delete"

	EventIndexCreate = "index_create"
	EventIndexRename = "index_rename"
	EventIndexDelete = "index_delete"

	EventDocumentCreate   = "document_create"
	EventDocumentRead     = "document_read"
	EventDocumentFind     = "document_find"
	EventDocumentUpdate   = "document_update"
	EventDocumentDelete   = "document_delete"
	EventDocumentCount    = "document_count"
	EventDocumentSum      = "document_sum"
	EventDocumentIncrease = "document_increase"
	EventDocumentDecrease = "document_decrease"
	EventDocumentPurge    = "document_purge"

	EventDocumentsCreate = "documents_create"
	EventDocumentsUpsert = "documents_upsert"
	EventDocumentsUpdate = "documents_update"
	EventDocumentsDelete = "documents_delete"

	EventPermissionsUpdate = "permissions_update"
)
